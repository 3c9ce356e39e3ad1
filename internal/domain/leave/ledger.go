package leave

import (
	"context"
	"fmt"
)

// AdjustPatch carries the optional fields of a manual balance adjustment.
// Nil means "leave as is".
type AdjustPatch struct {
	TotalDays       *float64 `json:"totalDays,omitempty"`
	UsedDays        *float64 `json:"usedDays,omitempty"`
	CarriedOverDays *float64 `json:"carriedOverDays,omitempty"`
	MaxCarryOver    *float64 `json:"maxCarryOver,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

type InitializeResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Balances returns the employee's ledger rows for the resolved financial
// year, joined with type metadata. Read-only.
func (s *Service) Balances(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	active, err := s.Store.EmployeeActive(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}
	resolved := ResolveFinancialYear(year, s.now())
	return s.Store.BalancesForYear(ctx, employeeID, resolved)
}

// InitializeBalances materializes one row per active leave type for the
// resolved year, seeded from the type defaults. Insert-if-absent makes
// repeat calls report skips instead of creating duplicates.
func (s *Service) InitializeBalances(ctx context.Context, employeeID string, year int) (InitializeResult, error) {
	var result InitializeResult

	active, err := s.Store.EmployeeActive(ctx, employeeID)
	if err != nil {
		return result, err
	}
	if !active {
		return result, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}

	resolved := ResolveFinancialYear(year, s.now())
	types, err := s.Store.ListActiveTypes(ctx)
	if err != nil {
		return result, err
	}

	for _, leaveType := range types {
		balance := LeaveBalance{
			EmployeeID:      employeeID,
			LeaveTypeID:     leaveType.ID,
			FinancialYear:   resolved,
			TotalDays:       RoundDays(leaveType.DefaultDays),
			UsedDays:        0,
			CarriedOverDays: 0,
			MaxCarryOver:    DefaultCarryOverCap(leaveType.Name),
			IsActive:        true,
			Notes:           fmt.Sprintf("Initialized for FY %s", FinancialYearLabel(resolved)),
		}
		balance.RemainingDays = Recompute(balance.TotalDays, 0, 0)

		created, err := s.Store.InsertBalanceIfAbsent(ctx, balance)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// AdjustBalance is the only sanctioned manual mutation path. It targets the
// current financial year, creating the row from type defaults when absent,
// and always recomputes remaining = total - used + carried.
func (s *Service) AdjustBalance(ctx context.Context, adminID, employeeID, leaveTypeID string, patch AdjustPatch) (LeaveBalance, error) {
	leaveType, err := s.Store.TypeByID(ctx, leaveTypeID)
	if err != nil {
		return LeaveBalance{}, err
	}
	if leaveType == nil {
		return LeaveBalance{}, fmt.Errorf("leave type %s: %w", leaveTypeID, ErrNotFound)
	}
	active, err := s.Store.EmployeeActive(ctx, employeeID)
	if err != nil {
		return LeaveBalance{}, err
	}
	if !active {
		return LeaveBalance{}, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}

	year := CurrentFinancialYear(s.now())
	balance, err := s.Store.ActiveBalance(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return LeaveBalance{}, err
	}

	if balance == nil {
		seeded := LeaveBalance{
			EmployeeID:      employeeID,
			LeaveTypeID:     leaveTypeID,
			FinancialYear:   year,
			TotalDays:       RoundDays(leaveType.DefaultDays),
			MaxCarryOver:    DefaultCarryOverCap(leaveType.Name),
			IsActive:        true,
			LastUpdatedBy:   adminID,
		}
		applyPatch(&seeded, patch)
		seeded.RemainingDays = Recompute(seeded.TotalDays, seeded.UsedDays, seeded.CarriedOverDays)
		created, err := s.Store.InsertBalanceIfAbsent(ctx, seeded)
		if err != nil {
			return LeaveBalance{}, err
		}
		if created {
			stored, err := s.Store.ActiveBalance(ctx, employeeID, leaveTypeID, year)
			if err != nil {
				return LeaveBalance{}, err
			}
			if stored != nil {
				return *stored, nil
			}
			return seeded, nil
		}
		// Lost a race with a concurrent insert; adjust the stored row.
		balance, err = s.Store.ActiveBalance(ctx, employeeID, leaveTypeID, year)
		if err != nil {
			return LeaveBalance{}, err
		}
		if balance == nil {
			return LeaveBalance{}, fmt.Errorf("balance for employee %s: %w", employeeID, ErrNotFound)
		}
	}

	applyPatch(balance, patch)
	balance.RemainingDays = Recompute(balance.TotalDays, balance.UsedDays, balance.CarriedOverDays)
	balance.LastUpdatedBy = adminID
	if err := s.Store.UpdateBalance(ctx, *balance); err != nil {
		return LeaveBalance{}, err
	}
	return *balance, nil
}

func applyPatch(balance *LeaveBalance, patch AdjustPatch) {
	if patch.TotalDays != nil {
		balance.TotalDays = RoundDays(*patch.TotalDays)
	}
	if patch.UsedDays != nil {
		balance.UsedDays = RoundDays(*patch.UsedDays)
	}
	if patch.CarriedOverDays != nil {
		balance.CarriedOverDays = RoundDays(*patch.CarriedOverDays)
	}
	if patch.MaxCarryOver != nil {
		balance.MaxCarryOver = RoundDays(*patch.MaxCarryOver)
	}
	if patch.Notes != nil {
		balance.Notes = *patch.Notes
	}
}

type BulkAdjustItem struct {
	EmployeeID  string      `json:"employeeId"`
	LeaveTypeID string      `json:"leaveTypeId"`
	Patch       AdjustPatch `json:"patch"`
}

type BulkAdjustOutcome struct {
	EmployeeID  string        `json:"employeeId"`
	LeaveTypeID string        `json:"leaveTypeId"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Balance     *LeaveBalance `json:"balance,omitempty"`
}

// BulkAdjustBalances applies each adjustment independently. There is no
// batch transaction: a failure on one item leaves earlier items committed
// and later items still processed.
func (s *Service) BulkAdjustBalances(ctx context.Context, adminID string, items []BulkAdjustItem) []BulkAdjustOutcome {
	outcomes := make([]BulkAdjustOutcome, 0, len(items))
	for _, item := range items {
		outcome := BulkAdjustOutcome{EmployeeID: item.EmployeeID, LeaveTypeID: item.LeaveTypeID}
		balance, err := s.AdjustBalance(ctx, adminID, item.EmployeeID, item.LeaveTypeID, item.Patch)
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Success = true
			outcome.Balance = &balance
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
