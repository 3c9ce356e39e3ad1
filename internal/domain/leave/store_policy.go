package leave

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CurrentDefaultBalance(ctx context.Context) (*DefaultBalance, error) {
	var d DefaultBalance
	err := s.DB.QueryRow(ctx, `
    SELECT id, annual_leave, sick_leave, personal_leave, max_carry_over, version, is_current,
           COALESCE(created_by::text, ''), created_at
    FROM default_balances
    WHERE is_current
  `).Scan(&d.ID, &d.AnnualLeave, &d.SickLeave, &d.PersonalLeave, &d.MaxCarryOver,
		&d.Version, &d.IsCurrent, &d.CreatedBy, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveDefaultBalance appends a new version and moves the current pointer in
// one transaction, keeping exactly one is_current row.
func (s *Store) SaveDefaultBalance(ctx context.Context, payload DefaultBalance) (DefaultBalance, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DefaultBalance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) + 1 FROM default_balances").Scan(&version); err != nil {
		return DefaultBalance{}, err
	}

	if _, err := tx.Exec(ctx, "UPDATE default_balances SET is_current = false WHERE is_current"); err != nil {
		return DefaultBalance{}, err
	}

	saved := payload
	saved.Version = version
	saved.IsCurrent = true
	if err := tx.QueryRow(ctx, `
    INSERT INTO default_balances
      (annual_leave, sick_leave, personal_leave, max_carry_over, version, is_current, created_by)
    VALUES ($1,$2,$3,$4,$5,true,NULLIF($6,'')::uuid)
    RETURNING id, created_at
  `, payload.AnnualLeave, payload.SickLeave, payload.PersonalLeave, payload.MaxCarryOver,
		version, payload.CreatedBy).Scan(&saved.ID, &saved.CreatedAt); err != nil {
		return DefaultBalance{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DefaultBalance{}, err
	}
	return saved, nil
}

func (s *Store) DefaultBalanceHistory(ctx context.Context) ([]DefaultBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, annual_leave, sick_leave, personal_leave, max_carry_over, version, is_current,
           COALESCE(created_by::text, ''), created_at
    FROM default_balances
    ORDER BY version DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []DefaultBalance
	for rows.Next() {
		var d DefaultBalance
		if err := rows.Scan(&d.ID, &d.AnnualLeave, &d.SickLeave, &d.PersonalLeave, &d.MaxCarryOver,
			&d.Version, &d.IsCurrent, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, d)
	}
	return history, rows.Err()
}
