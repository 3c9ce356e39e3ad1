package directory

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func (s *Store) DepartmentCount(ctx context.Context) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM departments").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListDepartments(ctx context.Context, limit, offset int) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(parent_id::text, ''), COALESCE(manager_id::text, ''), created_at
    FROM departments
    ORDER BY name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.ManagerID, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	var dep Department
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(parent_id::text, ''), COALESCE(manager_id::text, ''), created_at
    FROM departments
    WHERE id = $1
  `, departmentID).Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.ManagerID, &dep.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

func (s *Store) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, parent_id, manager_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, dep.Name, nullIfEmpty(dep.ParentID), nullIfEmpty(dep.ManagerID)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, departmentID string, dep Department) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE departments
    SET name = $1, parent_id = $2, manager_id = $3
    WHERE id = $4
  `, dep.Name, nullIfEmpty(dep.ParentID), nullIfEmpty(dep.ManagerID), departmentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DepartmentHasEmployees(ctx context.Context, departmentID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM employees WHERE department_id = $1", departmentID,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteDepartment(ctx context.Context, departmentID string) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE id = $1", departmentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
