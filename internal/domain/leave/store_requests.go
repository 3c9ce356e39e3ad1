package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `
  r.id, r.employee_id, r.leave_type_id, t.name, r.start_date, r.end_date,
  r.is_half_day, COALESCE(r.half_day_type, ''), r.number_of_days, r.reason, r.status,
  COALESCE(r.approver_id::text, ''), r.approved_at, COALESCE(r.rejection_reason, ''), r.created_at
`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &r.LeaveTypeName, &r.StartDate, &r.EndDate,
		&r.IsHalfDay, &r.HalfDayType, &r.NumberOfDays, &r.Reason, &r.Status,
		&r.ApproverID, &r.ApprovedAt, &r.RejectionReason, &r.CreatedAt)
	return r, err
}

// CreateRequestGuarded runs the overlap check, the advisory balance check
// and the insert in one transaction. The balance is only checked, never
// reserved; approval-time debiting is a separate operation.
func (s *Store) CreateRequestGuarded(ctx context.Context, request LeaveRequest, year int) (string, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var overlapping int
	if err := tx.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE employee_id = $1 AND status IN ($2, $3)
      AND start_date <= $4 AND end_date >= $5
  `, request.EmployeeID, StatusPending, StatusApproved, request.EndDate, request.StartDate).Scan(&overlapping); err != nil {
		return "", err
	}
	if overlapping > 0 {
		return "", ErrOverlappingRequest
	}

	var remaining float64
	err = tx.QueryRow(ctx, `
    SELECT remaining_days
    FROM leave_balances
    WHERE employee_id = $1 AND leave_type_id = $2 AND financial_year = $3 AND is_active
  `, request.EmployeeID, request.LeaveTypeID, year).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		remaining = 0
	} else if err != nil {
		return "", err
	}
	if remaining < request.NumberOfDays {
		return "", fmt.Errorf("%.1f days remaining, %.1f requested: %w", remaining, request.NumberOfDays, ErrInsufficientBalance)
	}

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO leave_requests
      (employee_id, leave_type_id, start_date, end_date, is_half_day, half_day_type,
       number_of_days, reason, status)
    VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9)
    RETURNING id
  `, request.EmployeeID, request.LeaveTypeID, request.StartDate, request.EndDate,
		request.IsHalfDay, request.HalfDayType, request.NumberOfDays, request.Reason, StatusPending).Scan(&id); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) RequestByID(ctx context.Context, requestID string) (*LeaveRequest, error) {
	r, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests r
    JOIN leave_types t ON r.leave_type_id = t.id
    WHERE r.id = $1
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequestDecision guards the pending precondition in SQL so a
// concurrent decision loses cleanly instead of overwriting a terminal state.
func (s *Store) UpdateRequestDecision(ctx context.Context, requestID, status, approverID, rejectionReason string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = $3,
        approved_at = CASE WHEN $2 = $6 THEN now() END,
        rejection_reason = NULLIF($4, '')
    WHERE id = $1 AND status = $5
  `, requestID, status, approverID, rejectionReason, StatusPending, StatusApproved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests SET status = $2 WHERE id = $1 AND status = $3
  `, requestID, status, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// ApproveAndDebit approves the request and debits usedDays in one
// transaction, recomputing remaining from the stored columns.
func (s *Store) ApproveAndDebit(ctx context.Context, request LeaveRequest, approverID string, year int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = $3, approved_at = now()
    WHERE id = $1 AND status = $4
  `, request.ID, StatusApproved, approverID, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}

	tag, err = tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = used_days + $4,
        remaining_days = total_days - (used_days + $4) + carried_over_days,
        last_updated_by = NULLIF($5,'')::uuid,
        updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND financial_year = $3 AND is_active
  `, request.EmployeeID, request.LeaveTypeID, year, request.NumberOfDays, approverID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no active balance for FY %s: %w", FinancialYearLabel(year), ErrNotFound)
	}

	return tx.Commit(ctx)
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND r.employee_id = $%d", len(args))
	}
	if filter.ManagerEmployeeID != "" {
		args = append(args, filter.ManagerEmployeeID)
		where += fmt.Sprintf(" AND r.employee_id IN (SELECT id FROM employees WHERE manager_id = $%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND r.end_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND r.start_date <= $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests r"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests r
    JOIN leave_types t ON r.leave_type_id = t.id
  ` + where + " ORDER BY r.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, r)
	}
	return requests, total, rows.Err()
}
