package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/auth"
	"leavehub/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool)
	if err != nil {
		return err
	}

	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, roleIDs[auth.RoleAdmin], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	if cfg.SeedLeaveTypes {
		if err := ensureLeaveTypes(ctx, pool); err != nil {
			return err
		}
	}

	return ensureDefaultBalance(ctx, pool)
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		_, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM roles WHERE name = $1", roleName).Scan(&id)
		if err == nil {
			roleIDs[roleName] = id
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		err = pool.QueryRow(ctx, "INSERT INTO roles (name) VALUES ($1) RETURNING id", roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	permMap := map[string]string{}
	rows, err := pool.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return err
		}
		permMap[key] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for roleName, perms := range auth.RolePermissions {
		roleID := roleIDs[roleName]
		for _, permKey := range perms {
			permID, ok := permMap[permKey]
			if !ok {
				return errors.New("permission not found: " + permKey)
			}
			_, err := pool.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return pool.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, status)
    VALUES ($1, $2, $3, 'active')
    RETURNING id
  `, email, hash, roleID).Scan(&id)
}

func ensureLeaveTypes(ctx context.Context, pool *pgxpool.Pool) error {
	defaults := []struct {
		Name            string
		DefaultDays     float64
		MonthlyProRata  float64
		MaxCarryForward float64
	}{
		{Name: "Annual Leave", DefaultDays: 15, MonthlyProRata: 1.25, MaxCarryForward: 5},
		{Name: "Sick Leave", DefaultDays: 10, MonthlyProRata: 0, MaxCarryForward: 0},
		{Name: "Bereavement Leave", DefaultDays: 3, MonthlyProRata: 0, MaxCarryForward: 0},
		{Name: "Unpaid Leave", DefaultDays: 0, MonthlyProRata: 0, MaxCarryForward: 0},
	}
	for _, lt := range defaults {
		_, err := pool.Exec(ctx, `
      INSERT INTO leave_types (name, default_days, monthly_pro_rata, max_carry_forward, is_active)
      VALUES ($1, $2, $3, $4, true)
      ON CONFLICT (name) DO NOTHING
    `, lt.Name, lt.DefaultDays, lt.MonthlyProRata, lt.MaxCarryForward)
		if err != nil {
			return err
		}
	}
	return nil
}

// ensureDefaultBalance seeds version 1 of the balance policy when no current
// version exists yet.
func ensureDefaultBalance(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM default_balances WHERE is_current").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := pool.Exec(ctx, `
    INSERT INTO default_balances (annual_leave, sick_leave, personal_leave, max_carry_over, version, is_current)
    VALUES (15, 10, 3, 5, 1, true)
  `)
	return err
}
