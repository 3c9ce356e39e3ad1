package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/auth"
	cryptoutil "leavehub/internal/platform/crypto"
)

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const employeeColumns = `id,
       COALESCE(user_id::text, ''),
       COALESCE(employee_number, ''),
       first_name, last_name, email,
       COALESCE(phone, ''),
       date_of_birth,
       COALESCE(address, ''),
       COALESCE(national_id, ''),
       national_id_enc,
       COALESCE(employment_type, ''),
       COALESCE(department_id::text, ''),
       COALESCE(manager_id::text, ''),
       start_date, end_date, status, created_at, updated_at`

func (s *Store) scanEmployee(row pgx.Row) (*Employee, error) {
	var emp Employee
	var nationalPlain string
	var nationalEnc []byte
	if err := row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Phone,
		&emp.DateOfBirth, &emp.Address, &nationalPlain, &nationalEnc,
		&emp.EmploymentType, &emp.DepartmentID, &emp.ManagerID,
		&emp.StartDate, &emp.EndDate, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	emp.NationalID = s.decryptFallback(nationalEnc, nationalPlain)
	return &emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", employeeID)
	emp, err := s.scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return emp, err
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, userID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE user_id = $1", userID)
	emp, err := s.scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, status string) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	nationalEnc, nationalPlain := s.encryptNationalID(emp.NationalID)
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_number, first_name, last_name, email, phone, date_of_birth,
      address, national_id, national_id_enc, employment_type, department_id, manager_id, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    RETURNING id
  `,
		nullIfEmpty(emp.UserID), nullIfEmpty(emp.EmployeeNumber), emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.DateOfBirth, emp.Address, nationalPlain, nationalEnc, emp.EmploymentType,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID), emp.StartDate, emp.EndDate, emp.Status,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateEmployeeWithUser creates the login account and the employee record in
// one transaction so onboarding cannot leave either half dangling.
func (s *Store) CreateEmployeeWithUser(ctx context.Context, emp Employee, password, roleName string) (string, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", "", err
	}
	nationalEnc, nationalPlain := s.encryptNationalID(emp.NationalID)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback(ctx)

	var userID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, status)
    SELECT $1, $2, r.id, 'active' FROM roles r WHERE r.name = $3
    RETURNING id
  `, emp.Email, hash, roleName).Scan(&userID); err != nil {
		return "", "", err
	}

	var employeeID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_number, first_name, last_name, email, phone, date_of_birth,
      address, national_id, national_id_enc, employment_type, department_id, manager_id, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    RETURNING id
  `,
		userID, nullIfEmpty(emp.EmployeeNumber), emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.DateOfBirth, emp.Address, nationalPlain, nationalEnc, emp.EmploymentType,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID), emp.StartDate, emp.EndDate, emp.Status,
	).Scan(&employeeID); err != nil {
		return "", "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", err
	}
	return employeeID, userID, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, employeeID string, emp Employee) error {
	nationalEnc, nationalPlain := s.encryptNationalID(emp.NationalID)
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_number = $1,
        first_name = $2,
        last_name = $3,
        email = $4,
        phone = $5,
        date_of_birth = $6,
        address = $7,
        national_id = $8,
        national_id_enc = $9,
        employment_type = $10,
        department_id = $11,
        manager_id = $12,
        start_date = $13,
        end_date = $14,
        status = $15,
        updated_at = now()
    WHERE id = $16
  `,
		emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.DateOfBirth, emp.Address,
		nationalPlain, nationalEnc, emp.EmploymentType,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID),
		emp.StartDate, emp.EndDate, emp.Status, employeeID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateManagerRelation(ctx context.Context, employeeID, managerID string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO manager_relations (employee_id, manager_id)
    VALUES ($1,$2)
  `, employeeID, managerID)
	return err
}

func (s *Store) CloseManagerRelations(ctx context.Context, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE manager_relations SET ended_at = now()
    WHERE employee_id = $1 AND ended_at IS NULL
  `, employeeID)
	return err
}

func (s *Store) ManagerHistory(ctx context.Context, employeeID string) ([]map[string]any, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT mr.manager_id, m.first_name, m.last_name, mr.started_at, mr.ended_at
    FROM manager_relations mr
    JOIN employees m ON m.id = mr.manager_id
    WHERE mr.employee_id = $1
    ORDER BY mr.started_at DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var managerID, firstName, lastName string
		var startedAt, endedAt any
		if err := rows.Scan(&managerID, &firstName, &lastName, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"managerId": managerID,
			"name":      firstName + " " + lastName,
			"startedAt": startedAt,
			"endedAt":   endedAt,
		})
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *Store) encryptNationalID(value string) ([]byte, any) {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return nil, nullIfEmpty(value)
	}
	encrypted, _ := s.Crypto.EncryptString(value)
	return encrypted, nil
}

func (s *Store) decryptFallback(encrypted []byte, plain string) string {
	if s.Crypto == nil || !s.Crypto.Configured() || len(encrypted) == 0 {
		return plain
	}
	decrypted, err := s.Crypto.DecryptString(encrypted)
	if err != nil {
		return plain
	}
	return decrypted
}
