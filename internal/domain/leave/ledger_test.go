package leave

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(store *fakeStore, now time.Time) *Service {
	svc := NewService(store)
	svc.Now = func() time.Time { return now }
	return svc
}

func TestInitializeBalancesSeedsDefaults(t *testing.T) {
	store := newFakeStore()
	store.addType("Annual Leave", 15)
	store.addType("Sick Leave", 10)
	employee := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 6, 1))

	result, err := svc.InitializeBalances(context.Background(), employee, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	balances, err := svc.Balances(context.Background(), employee, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	annual := balances[0]
	if annual.LeaveTypeName != "Annual Leave" {
		t.Fatalf("expected annual first, got %s", annual.LeaveTypeName)
	}
	if annual.TotalDays != 15 || annual.RemainingDays != 15 || annual.MaxCarryOver != 5 {
		t.Fatalf("unexpected annual seed: %+v", annual)
	}
	if balances[1].MaxCarryOver != 0 {
		t.Fatalf("non-annual types carry nothing by default: %+v", balances[1])
	}
	if balances[0].FinancialYear != 2025 {
		t.Fatalf("expected FY 2025, got %d", balances[0].FinancialYear)
	}
}

func TestInitializeBalancesIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 6, 1))

	if _, err := svc.InitializeBalances(context.Background(), employee, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.InitializeBalances(context.Background(), employee, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created != 0 || second.Skipped != 1 {
		t.Fatalf("second run must skip, got %+v", second)
	}

	balances, _ := svc.Balances(context.Background(), employee, 0)
	if len(balances) != 1 {
		t.Fatalf("expected a single row per (type, year), got %d", len(balances))
	}
}

func TestInitializeBalancesUnknownEmployee(t *testing.T) {
	store := newFakeStore()
	store.addType("Annual Leave", 15)
	svc := newTestService(store, date(2025, 6, 1))

	_, err := svc.InitializeBalances(context.Background(), "missing", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustBalanceRecomputesRemaining(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, UsedDays: 0, RemainingDays: 15, MaxCarryOver: 5,
	})
	svc := newTestService(store, date(2025, 7, 1))

	updated, err := svc.AdjustBalance(context.Background(), "admin-1", employee, annual.ID, AdjustPatch{UsedDays: float(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.UsedDays != 4 || updated.RemainingDays != 11 {
		t.Fatalf("expected used 4 remaining 11, got %+v", updated)
	}
	if updated.LastUpdatedBy != "admin-1" {
		t.Fatalf("expected lastUpdatedBy stamp, got %q", updated.LastUpdatedBy)
	}

	// remaining = total - used + carried must hold after every adjustment.
	updated, err = svc.AdjustBalance(context.Background(), "admin-1", employee, annual.ID, AdjustPatch{
		TotalDays: float(18), CarriedOverDays: float(2.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RemainingDays != Recompute(18, 4, 2.5) {
		t.Fatalf("invariant broken: %+v", updated)
	}
}

func TestAdjustBalanceCreatesRowWhenAbsent(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 7, 1))

	created, err := svc.AdjustBalance(context.Background(), "admin-1", employee, annual.ID, AdjustPatch{UsedDays: float(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.TotalDays != 15 || created.UsedDays != 2 || created.RemainingDays != 13 {
		t.Fatalf("expected row seeded from type defaults, got %+v", created)
	}
	if created.FinancialYear != 2025 {
		t.Fatalf("expected current FY, got %d", created.FinancialYear)
	}
}

func TestAdjustBalanceUnknownLeaveType(t *testing.T) {
	store := newFakeStore()
	employee := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 7, 1))

	_, err := svc.AdjustBalance(context.Background(), "admin-1", employee, "missing", AdjustPatch{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkAdjustBalancesToleratesPartialFailure(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	good := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 7, 1))

	outcomes := svc.BulkAdjustBalances(context.Background(), "admin-1", []BulkAdjustItem{
		{EmployeeID: good, LeaveTypeID: annual.ID, Patch: AdjustPatch{UsedDays: float(1)}},
		{EmployeeID: "missing", LeaveTypeID: annual.ID, Patch: AdjustPatch{UsedDays: float(1)}},
		{EmployeeID: good, LeaveTypeID: annual.ID, Patch: AdjustPatch{UsedDays: float(3)}},
	})
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Success || outcomes[1].Success || !outcomes[2].Success {
		t.Fatalf("expected success/failure/success, got %+v", outcomes)
	}
	if outcomes[1].Error == "" {
		t.Fatal("failed item must carry its error")
	}

	// Item 3 ran even though item 2 failed; item 1 stayed committed.
	balance, _ := store.ActiveBalance(context.Background(), good, annual.ID, 2025)
	if balance.UsedDays != 3 {
		t.Fatalf("expected last write used=3, got %+v", balance)
	}
}

func TestSubmitThenAdjustScenario(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, UsedDays: 0, CarriedOverDays: 0, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))

	result, err := svc.SubmitRequest(context.Background(), SubmitInput{
		EmployeeID:  employee,
		LeaveTypeID: annual.ID,
		StartDate:   date(2025, 7, 7),
		EndDate:     date(2025, 7, 10),
		Reason:      "family visit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Request.NumberOfDays != 4 {
		t.Fatalf("expected 4 days, got %v", result.Request.NumberOfDays)
	}

	// Submission never debits the ledger.
	balance, _ := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if balance.UsedDays != 0 || balance.RemainingDays != 15 {
		t.Fatalf("balance must be untouched at submission: %+v", balance)
	}

	updated, err := svc.AdjustBalance(context.Background(), "admin-1", employee, annual.ID, AdjustPatch{UsedDays: float(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RemainingDays != 11 {
		t.Fatalf("expected remaining 11 after manual debit, got %+v", updated)
	}
}
