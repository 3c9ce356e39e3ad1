package leave_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/leave"
	"leavehub/internal/platform/db"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, "../../../migrations"); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	return pool
}

func insertEmployee(t *testing.T, pool *pgxpool.Pool, userID string) string {
	t.Helper()
	ctx := context.Background()
	email := fmt.Sprintf("store-%d@example.com", time.Now().UnixNano())

	var employeeID string
	if userID == "" {
		if err := pool.QueryRow(ctx, `
      INSERT INTO employees (first_name, last_name, email, status)
      VALUES ('Store', 'Test', $1, 'active')
      RETURNING id
    `, email).Scan(&employeeID); err != nil {
			t.Fatalf("failed to insert employee: %v", err)
		}
		return employeeID
	}

	if err := pool.QueryRow(ctx, `
    INSERT INTO employees (user_id, first_name, last_name, email, status)
    VALUES ($1, 'Store', 'Test', $2, 'active')
    RETURNING id
  `, userID, email).Scan(&employeeID); err != nil {
		t.Fatalf("failed to insert employee: %v", err)
	}
	return employeeID
}

func insertUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	var roleID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO roles (name) VALUES ($1) RETURNING id
  `, fmt.Sprintf("store-test-%d", suffix)).Scan(&roleID); err != nil {
		t.Fatalf("failed to insert role: %v", err)
	}

	var userID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, status)
    VALUES ($1, 'x', $2, 'active')
    RETURNING id
  `, fmt.Sprintf("store-user-%d@example.com", suffix), roleID).Scan(&userID); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return userID
}

func insertPendingRequest(t *testing.T, pool *pgxpool.Pool, employeeID string) string {
	t.Helper()
	ctx := context.Background()

	var typeID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO leave_types (name, default_days) VALUES ($1, 10) RETURNING id
  `, fmt.Sprintf("Store Test Leave %d", time.Now().UnixNano())).Scan(&typeID); err != nil {
		t.Fatalf("failed to insert leave type: %v", err)
	}

	var requestID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, number_of_days, reason)
    VALUES ($1, $2, '2026-10-05', '2026-10-06', 2, 'store test')
    RETURNING id
  `, employeeID, typeID).Scan(&requestID); err != nil {
		t.Fatalf("failed to insert request: %v", err)
	}
	return requestID
}

func TestUserIDByEmployeeID(t *testing.T) {
	pool := testPool(t)
	store := leave.NewStore(pool)
	ctx := context.Background()

	userID := insertUser(t, pool)
	linked := insertEmployee(t, pool, userID)
	unlinked := insertEmployee(t, pool, "")

	got, err := store.UserIDByEmployeeID(ctx, linked)
	if err != nil {
		t.Fatalf("lookup for linked employee failed: %v", err)
	}
	if got != userID {
		t.Fatalf("expected user %s, got %q", userID, got)
	}

	got, err = store.UserIDByEmployeeID(ctx, unlinked)
	if err != nil {
		t.Fatalf("lookup for employee without login failed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty user id for employee without login, got %q", got)
	}
}

func TestUpdateRequestDecisionApprovalTimestamp(t *testing.T) {
	pool := testPool(t)
	store := leave.NewStore(pool)
	ctx := context.Background()

	userID := insertUser(t, pool)
	employeeID := insertEmployee(t, pool, userID)

	rejected := insertPendingRequest(t, pool, employeeID)
	if err := store.UpdateRequestDecision(ctx, rejected, leave.StatusRejected, userID, "coverage needed"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	var rejectedAt *time.Time
	if err := pool.QueryRow(ctx, "SELECT approved_at FROM leave_requests WHERE id = $1", rejected).Scan(&rejectedAt); err != nil {
		t.Fatalf("failed to read rejected request: %v", err)
	}
	if rejectedAt != nil {
		t.Fatalf("rejected request must not carry approved_at, got %v", rejectedAt)
	}

	approved := insertPendingRequest(t, pool, employeeID)
	if err := store.UpdateRequestDecision(ctx, approved, leave.StatusApproved, userID, ""); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	var approvedAt *time.Time
	if err := pool.QueryRow(ctx, "SELECT approved_at FROM leave_requests WHERE id = $1", approved).Scan(&approvedAt); err != nil {
		t.Fatalf("failed to read approved request: %v", err)
	}
	if approvedAt == nil {
		t.Fatal("approved request must carry approved_at")
	}
}
