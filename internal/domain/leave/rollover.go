package leave

import (
	"context"
	"fmt"
	"log/slog"
)

// PolicyOverride lets the admin replace the per-type entitlement and carry
// cap for a rollover run. Nil fields fall back to the leave-type defaults.
type PolicyOverride struct {
	AnnualLeave   *float64 `json:"annualLeave,omitempty"`
	SickLeave     *float64 `json:"sickLeave,omitempty"`
	PersonalLeave *float64 `json:"personalLeave,omitempty"`
	MaxCarryOver  *float64 `json:"maxCarryOver,omitempty"`
}

func (p *PolicyOverride) entitlementFor(typeName string, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	var override *float64
	switch NameClass(typeName) {
	case "annual":
		override = p.AnnualLeave
	case "sick":
		override = p.SickLeave
	case "personal":
		override = p.PersonalLeave
	}
	if override == nil {
		return fallback
	}
	return *override
}

func (p *PolicyOverride) carryCapFor(typeName string) float64 {
	if p != nil && p.MaxCarryOver != nil {
		return *p.MaxCarryOver
	}
	return DefaultCarryOverCap(typeName)
}

type RolloverError struct {
	EmployeeID string `json:"employeeId"`
	Message    string `json:"error"`
}

type RolloverResult struct {
	ProcessedCount int             `json:"processedCount"`
	SkippedTuples  int             `json:"skippedTuples"`
	CreatedTuples  int             `json:"createdTuples"`
	Errors         []RolloverError `json:"errors"`
	Message        string          `json:"message"`
}

type RolloverStore interface {
	ListActiveEmployeeIDs(ctx context.Context) ([]string, error)
	ListActiveTypes(ctx context.Context) ([]LeaveType, error)
	ActiveBalance(ctx context.Context, employeeID, leaveTypeID string, year int) (*LeaveBalance, error)
	InsertBalanceIfAbsent(ctx context.Context, balance LeaveBalance) (bool, error)
}

// ProcessRollover opens the newYear ledger for every active employee and
// leave type from the prior year's closing balances.
//
// Per tuple: an existing newYear row is a skip, not an error; the carried
// amount is min(previous remaining, previous carry cap) and a negative
// previous remaining deliberately carries through negative. A failure for
// one employee is recorded and the batch continues; only a failure to
// enumerate employees or types aborts the run.
func ProcessRollover(ctx context.Context, store RolloverStore, newYear int, override *PolicyOverride) (RolloverResult, error) {
	var result RolloverResult

	employees, err := store.ListActiveEmployeeIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list employees: %w", err)
	}
	types, err := store.ListActiveTypes(ctx)
	if err != nil {
		return result, fmt.Errorf("list leave types: %w", err)
	}

	priorYear := newYear - 1
	for _, employeeID := range employees {
		failed := false
		for _, leaveType := range types {
			created, err := rollForward(ctx, store, employeeID, leaveType, priorYear, newYear, override)
			if err != nil {
				slog.Warn("rollover failed", "employeeId", employeeID, "leaveTypeId", leaveType.ID, "err", err)
				result.Errors = append(result.Errors, RolloverError{EmployeeID: employeeID, Message: err.Error()})
				failed = true
				break
			}
			if created {
				result.CreatedTuples++
			} else {
				result.SkippedTuples++
			}
		}
		if !failed {
			result.ProcessedCount++
		}
	}

	result.Message = fmt.Sprintf("rollover to FY %s: %d employees processed, %d balances created, %d already present, %d failed",
		FinancialYearLabel(newYear), result.ProcessedCount, result.CreatedTuples, result.SkippedTuples, len(result.Errors))
	return result, nil
}

func rollForward(ctx context.Context, store RolloverStore, employeeID string, leaveType LeaveType, priorYear, newYear int, override *PolicyOverride) (bool, error) {
	var previousRemaining, previousCap float64
	prior, err := store.ActiveBalance(ctx, employeeID, leaveType.ID, priorYear)
	if err != nil {
		return false, err
	}
	if prior != nil {
		previousRemaining = prior.RemainingDays
		previousCap = prior.MaxCarryOver
	}

	carried := previousRemaining
	if previousCap < carried {
		carried = previousCap
	}

	totalDays := override.entitlementFor(leaveType.Name, leaveType.DefaultDays)
	carryCap := override.carryCapFor(leaveType.Name)

	balance := LeaveBalance{
		EmployeeID:      employeeID,
		LeaveTypeID:     leaveType.ID,
		FinancialYear:   newYear,
		TotalDays:       RoundDays(totalDays),
		UsedDays:        0,
		CarriedOverDays: RoundDays(carried),
		MaxCarryOver:    RoundDays(carryCap),
		IsActive:        true,
		Notes:           fmt.Sprintf("Opening balance for FY %s", FinancialYearLabel(newYear)),
	}
	balance.RemainingDays = Recompute(balance.TotalDays, 0, balance.CarriedOverDays)

	// Insert-if-absent doubles as the skip check; a concurrent run that
	// wins the race shows up here as the skip path, not a conflict error.
	return store.InsertBalanceIfAbsent(ctx, balance)
}
