package leave

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const balanceColumns = `
  b.id, b.employee_id, b.leave_type_id, t.name, b.financial_year,
  b.total_days, b.used_days, b.remaining_days, b.carried_over_days, b.max_carry_over,
  b.is_active, COALESCE(b.last_updated_by::text, ''), COALESCE(b.notes, ''), b.updated_at
`

func scanBalance(row pgx.Row) (LeaveBalance, error) {
	var b LeaveBalance
	err := row.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.LeaveTypeName, &b.FinancialYear,
		&b.TotalDays, &b.UsedDays, &b.RemainingDays, &b.CarriedOverDays, &b.MaxCarryOver,
		&b.IsActive, &b.LastUpdatedBy, &b.Notes, &b.UpdatedAt)
	return b, err
}

func (s *Store) BalancesForYear(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances b
    JOIN leave_types t ON b.leave_type_id = t.id
    WHERE b.employee_id = $1 AND b.financial_year = $2 AND b.is_active
    ORDER BY t.name
  `, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) ActiveBalance(ctx context.Context, employeeID, leaveTypeID string, year int) (*LeaveBalance, error) {
	b, err := scanBalance(s.DB.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances b
    JOIN leave_types t ON b.leave_type_id = t.id
    WHERE b.employee_id = $1 AND b.leave_type_id = $2 AND b.financial_year = $3 AND b.is_active
  `, employeeID, leaveTypeID, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// InsertBalanceIfAbsent inserts against the partial unique index on
// (employee_id, leave_type_id, financial_year) WHERE is_active. A conflict
// means the tuple was already materialized and reports created=false.
func (s *Store) InsertBalanceIfAbsent(ctx context.Context, balance LeaveBalance) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances
      (employee_id, leave_type_id, financial_year, total_days, used_days, remaining_days,
       carried_over_days, max_carry_over, is_active, last_updated_by, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true,NULLIF($9,'')::uuid,$10)
    ON CONFLICT (employee_id, leave_type_id, financial_year) WHERE is_active DO NOTHING
  `, balance.EmployeeID, balance.LeaveTypeID, balance.FinancialYear,
		balance.TotalDays, balance.UsedDays, balance.RemainingDays,
		balance.CarriedOverDays, balance.MaxCarryOver, balance.LastUpdatedBy, balance.Notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateBalance(ctx context.Context, balance LeaveBalance) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET total_days = $2, used_days = $3, remaining_days = $4, carried_over_days = $5,
        max_carry_over = $6, last_updated_by = NULLIF($7,'')::uuid, notes = $8, updated_at = now()
    WHERE id = $1 AND is_active
  `, balance.ID, balance.TotalDays, balance.UsedDays, balance.RemainingDays,
		balance.CarriedOverDays, balance.MaxCarryOver, balance.LastUpdatedBy, balance.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AllBalancesForYear(ctx context.Context, year int) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances b
    JOIN leave_types t ON b.leave_type_id = t.id
    WHERE b.financial_year = $1 AND b.is_active
    ORDER BY b.employee_id, t.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) UsageByType(ctx context.Context, year int) ([]UsageRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.leave_type_id, t.name, COALESCE(SUM(r.number_of_days), 0)
    FROM leave_requests r
    JOIN leave_types t ON r.leave_type_id = t.id
    WHERE r.status = $1 AND r.start_date >= $2 AND r.start_date <= $3
    GROUP BY r.leave_type_id, t.name
    ORDER BY t.name
  `, StatusApproved, FinancialYearStart(year), FinancialYearEnd(year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.LeaveTypeID, &u.LeaveTypeName, &u.TotalDays); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
