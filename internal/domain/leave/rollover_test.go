package leave

import (
	"context"
	"errors"
	"testing"
)

func float(v float64) *float64 { return &v }

func TestProcessRolloverCarriesCappedRemainder(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2024,
		TotalDays: 15, UsedDays: 9, RemainingDays: 6, MaxCarryOver: 5,
	})

	result, err := ProcessRollover(context.Background(), store, 2025, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProcessedCount != 1 || result.CreatedTuples != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	opened, err := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if err != nil || opened == nil {
		t.Fatalf("expected 2025 balance, got %v (err %v)", opened, err)
	}
	if opened.TotalDays != 15 || opened.CarriedOverDays != 5 || opened.UsedDays != 0 || opened.RemainingDays != 20 {
		t.Fatalf("unexpected opening balance: %+v", opened)
	}
	if opened.MaxCarryOver != 5 {
		t.Fatalf("expected annual carry cap 5, got %v", opened.MaxCarryOver)
	}
}

func TestProcessRolloverSkipsExistingYear(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2024,
		TotalDays: 15, RemainingDays: 6, MaxCarryOver: 5,
	})

	first, err := ProcessRollover(context.Background(), store, 2025, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ProcessRollover(context.Background(), store, 2025, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ProcessedCount != 1 || second.CreatedTuples != 0 || second.SkippedTuples != 1 {
		t.Fatalf("expected pure skip on re-run, got %+v", second)
	}
	if len(second.Errors) != 0 {
		t.Fatalf("skip path must not be an error: %+v", second.Errors)
	}

	all, _ := store.AllBalancesForYear(context.Background(), 2025)
	if len(all) != first.CreatedTuples {
		t.Fatalf("re-run must not create rows: %d rows after second run", len(all))
	}
}

func TestProcessRolloverMissingPriorYearStartsFromZero(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")

	if _, err := ProcessRollover(context.Background(), store, 2025, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opened, _ := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if opened == nil {
		t.Fatal("expected balance row")
	}
	if opened.CarriedOverDays != 0 || opened.RemainingDays != 15 {
		t.Fatalf("expected fresh entitlement, got %+v", opened)
	}
}

func TestProcessRolloverNegativeRemainderCarriesThrough(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2024,
		TotalDays: 15, UsedDays: 18, RemainingDays: -3, MaxCarryOver: 5,
	})

	if _, err := ProcessRollover(context.Background(), store, 2025, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opened, _ := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if opened == nil {
		t.Fatal("expected balance row")
	}
	// An over-drawn year is not floored at zero: the debt follows the
	// employee into the new year.
	if opened.CarriedOverDays != -3 {
		t.Fatalf("expected carried -3, got %v", opened.CarriedOverDays)
	}
	if opened.RemainingDays != 12 {
		t.Fatalf("expected remaining 12, got %v", opened.RemainingDays)
	}
}

func TestProcessRolloverPolicyOverride(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	sick := store.addType("Sick Leave", 10)
	employee := store.addEmployee("user-1", "")

	override := &PolicyOverride{AnnualLeave: float(20), MaxCarryOver: float(8)}
	if _, err := ProcessRollover(context.Background(), store, 2025, override); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	annualBalance, _ := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if annualBalance.TotalDays != 20 || annualBalance.MaxCarryOver != 8 {
		t.Fatalf("override not applied: %+v", annualBalance)
	}
	sickBalance, _ := store.ActiveBalance(context.Background(), employee, sick.ID, 2025)
	if sickBalance.TotalDays != 10 {
		t.Fatalf("sick entitlement should fall back to default, got %+v", sickBalance)
	}
	if sickBalance.MaxCarryOver != 8 {
		t.Fatalf("carry cap override applies to all types, got %+v", sickBalance)
	}
}

func TestProcessRolloverCollectsPerEmployeeFailures(t *testing.T) {
	store := newFakeStore()
	store.addType("Annual Leave", 15)
	broken := store.addEmployee("user-1", "")
	healthy := store.addEmployee("user-2", "")
	store.balanceErr[broken] = errors.New("connection reset")

	result, err := ProcessRollover(context.Background(), store, 2025, nil)
	if err != nil {
		t.Fatalf("per-employee failures must not abort the batch: %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Fatalf("expected 1 processed, got %d", result.ProcessedCount)
	}
	if len(result.Errors) != 1 || result.Errors[0].EmployeeID != broken {
		t.Fatalf("expected one recorded failure for %s, got %+v", broken, result.Errors)
	}

	all, _ := store.AllBalancesForYear(context.Background(), 2025)
	if len(all) != 1 || all[0].EmployeeID != healthy {
		t.Fatalf("healthy employee should still be processed: %+v", all)
	}
}
