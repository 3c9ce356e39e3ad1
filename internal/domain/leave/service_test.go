package leave

import (
	"context"
	"errors"
	"strings"
	"testing"

	"leavehub/internal/domain/auth"
)

func submitLeave(t *testing.T, svc *Service, employeeID, leaveTypeID string) SubmitResult {
	t.Helper()
	result, err := svc.SubmitRequest(context.Background(), SubmitInput{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		StartDate:   date(2025, 7, 7),
		EndDate:     date(2025, 7, 8),
		Reason:      "time off",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return result
}

func TestSubmitRequestInsufficientBalance(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, UsedDays: 14, RemainingDays: 1,
	})
	svc := newTestService(store, date(2025, 7, 1))

	_, err := svc.SubmitRequest(context.Background(), SubmitInput{
		EmployeeID:  employee,
		LeaveTypeID: annual.ID,
		StartDate:   date(2025, 7, 7),
		EndDate:     date(2025, 7, 8),
		Reason:      "trip",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(store.requests) != 0 {
		t.Fatal("rejected submission must not persist a request")
	}
}

func TestSubmitRequestOverlapRejected(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))

	submitLeave(t, svc, employee, annual.ID)

	_, err := svc.SubmitRequest(context.Background(), SubmitInput{
		EmployeeID:  employee,
		LeaveTypeID: annual.ID,
		StartDate:   date(2025, 7, 8),
		EndDate:     date(2025, 7, 9),
		Reason:      "second trip",
	})
	if !errors.Is(err, ErrOverlappingRequest) {
		t.Fatalf("expected ErrOverlappingRequest, got %v", err)
	}
}

func TestSubmitRequestHalfDay(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))

	result, err := svc.SubmitRequest(context.Background(), SubmitInput{
		EmployeeID:  employee,
		LeaveTypeID: annual.ID,
		StartDate:   date(2025, 7, 7),
		EndDate:     date(2025, 7, 7),
		IsHalfDay:   true,
		HalfDayType: "morning",
		Reason:      "appointment",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Request.NumberOfDays != 0.5 {
		t.Fatalf("expected 0.5 days, got %v", result.Request.NumberOfDays)
	}
}

func TestSubmitRequestInactiveType(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	if err := store.DeactivateType(context.Background(), annual.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	employee := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 7, 1))

	_, err := svc.SubmitRequest(context.Background(), SubmitInput{
		EmployeeID:  employee,
		LeaveTypeID: annual.ID,
		StartDate:   date(2025, 7, 7),
		EndDate:     date(2025, 7, 8),
		Reason:      "trip",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive type, got %v", err)
	}
}

func TestSubmitRequestNotifiesManagerFirst(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	manager := store.addEmployee("mgr-user", "")
	employee := store.addEmployee("user-1", manager)
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	store.roles["hr-user"] = auth.RoleHR
	svc := newTestService(store, date(2025, 7, 1))

	result := submitLeave(t, svc, employee, annual.ID)
	if len(result.NotifyUserIDs) != 1 || result.NotifyUserIDs[0] != "mgr-user" {
		t.Fatalf("expected only the direct manager, got %v", result.NotifyUserIDs)
	}
}

func TestSubmitRequestFansOutWithoutManager(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	store.roles["hr-user"] = auth.RoleHR
	store.roles["admin-user"] = auth.RoleAdmin
	store.roles["plain-user"] = auth.RoleEmployee
	svc := newTestService(store, date(2025, 7, 1))

	result := submitLeave(t, svc, employee, annual.ID)
	if len(result.NotifyUserIDs) != 2 {
		t.Fatalf("expected hr and admin, got %v", result.NotifyUserIDs)
	}
	for _, id := range result.NotifyUserIDs {
		if id == "plain-user" {
			t.Fatal("employees must not be notified of others' requests")
		}
	}
}

func TestApproveRequestDoesNotDebit(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, employee, annual.ID)

	decision, err := svc.ApproveRequest(context.Background(), submitted.Request.ID, Actor{UserID: "hr-user", RoleName: auth.RoleHR})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Request.Status != StatusApproved || decision.Request.ApproverID != "hr-user" {
		t.Fatalf("unexpected decision: %+v", decision.Request)
	}
	if decision.EmployeeUserID != "user-1" {
		t.Fatalf("expected requester user ID, got %q", decision.EmployeeUserID)
	}

	balance, _ := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if balance.UsedDays != 0 || balance.RemainingDays != 15 {
		t.Fatalf("plain approval must not touch the ledger: %+v", balance)
	}
}

func TestApproveAndDebitRequest(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, employee, annual.ID)

	decision, err := svc.ApproveAndDebitRequest(context.Background(), submitted.Request.ID, Actor{UserID: "hr-user", RoleName: auth.RoleHR})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Request.Status != StatusApproved {
		t.Fatalf("unexpected status: %s", decision.Request.Status)
	}

	balance, _ := store.ActiveBalance(context.Background(), employee, annual.ID, 2025)
	if balance.UsedDays != 2 || balance.RemainingDays != 13 {
		t.Fatalf("expected debit of 2 days, got %+v", balance)
	}
}

func TestApproveRequestNonPending(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, employee, annual.ID)
	hr := Actor{UserID: "hr-user", RoleName: auth.RoleHR}

	if _, err := svc.ApproveRequest(context.Background(), submitted.Request.ID, hr); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	_, err := svc.ApproveRequest(context.Background(), submitted.Request.ID, hr)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-approval, got %v", err)
	}
	_, err = svc.RejectRequest(context.Background(), submitted.Request.ID, hr, "changed my mind")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("approved requests are terminal, got %v", err)
	}
}

func TestApproveRequestUnknownID(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, date(2025, 7, 1))

	_, err := svc.ApproveRequest(context.Background(), "missing", Actor{UserID: "hr-user", RoleName: auth.RoleHR})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApproveRequestEmployeeForbidden(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, employee, annual.ID)

	_, err := svc.ApproveRequest(context.Background(), submitted.Request.ID, Actor{UserID: "user-1", RoleName: auth.RoleEmployee})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestApproveRequestManagerScope(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	manager := store.addEmployee("mgr-user", "")
	other := store.addEmployee("other-mgr-user", "")
	reportee := store.addEmployee("user-1", manager)
	store.addBalance(LeaveBalance{
		EmployeeID: reportee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	_ = other
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, reportee, annual.ID)

	_, err := svc.ApproveRequest(context.Background(), submitted.Request.ID, Actor{UserID: "other-mgr-user", RoleName: auth.RoleManager})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("managers may only decide their own reports, got %v", err)
	}

	if _, err := svc.ApproveRequest(context.Background(), submitted.Request.ID, Actor{UserID: "mgr-user", RoleName: auth.RoleManager}); err != nil {
		t.Fatalf("direct manager approval failed: %v", err)
	}
}

func TestRejectRequestReasonBounds(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, employee, annual.ID)
	hr := Actor{UserID: "hr-user", RoleName: auth.RoleHR}

	if _, err := svc.RejectRequest(context.Background(), submitted.Request.ID, hr, "no"); !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("expected ErrInvalidReason for short reason, got %v", err)
	}
	if _, err := svc.RejectRequest(context.Background(), submitted.Request.ID, hr, "   ok   "); !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("reason is measured after trimming, got %v", err)
	}
	if _, err := svc.RejectRequest(context.Background(), submitted.Request.ID, hr, strings.Repeat("x", 501)); !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("expected ErrInvalidReason for long reason, got %v", err)
	}

	decision, err := svc.RejectRequest(context.Background(), submitted.Request.ID, hr, "coverage gap that week")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Request.Status != StatusRejected || decision.Request.RejectionReason == "" {
		t.Fatalf("unexpected decision: %+v", decision.Request)
	}
}

func TestCancelRequestOwnerOnly(t *testing.T) {
	store := newFakeStore()
	annual := store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	store.addEmployee("user-2", "")
	store.addBalance(LeaveBalance{
		EmployeeID: employee, LeaveTypeID: annual.ID, FinancialYear: 2025,
		TotalDays: 15, RemainingDays: 15,
	})
	svc := newTestService(store, date(2025, 7, 1))
	submitted := submitLeave(t, svc, employee, annual.ID)

	if _, err := svc.CancelRequest(context.Background(), submitted.Request.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	cancelled, err := svc.CancelRequest(context.Background(), submitted.Request.ID, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("unexpected status: %s", cancelled.Status)
	}

	if _, err := svc.CancelRequest(context.Background(), submitted.Request.ID, "user-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancelled requests are terminal, got %v", err)
	}
}

func TestRunRolloverDefaultsToNextYear(t *testing.T) {
	store := newFakeStore()
	store.addType("Annual Leave", 15)
	employee := store.addEmployee("user-1", "")
	svc := newTestService(store, date(2025, 7, 1))

	result, err := svc.RunRollover(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rows, _ := store.AllBalancesForYear(context.Background(), 2026)
	if len(rows) != 1 || rows[0].EmployeeID != employee {
		t.Fatalf("expected opening rows for FY 2026, got %+v", rows)
	}
}

func TestSavePolicyVersionsAndCurrentPointer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, date(2025, 7, 1))

	first, err := svc.SavePolicy(context.Background(), "admin-1", DefaultBalance{AnnualLeave: 15, SickLeave: 10, PersonalLeave: 5, MaxCarryOver: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.SavePolicy(context.Background(), "admin-1", DefaultBalance{AnnualLeave: 20, SickLeave: 10, PersonalLeave: 5, MaxCarryOver: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("expected monotonic versions, got %d then %d", first.Version, second.Version)
	}

	current, err := svc.CurrentPolicy(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current == nil || current.Version != 2 || current.AnnualLeave != 20 {
		t.Fatalf("current must point at the latest version: %+v", current)
	}

	history, err := svc.PolicyHistory(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].Version != 2 {
		t.Fatalf("expected newest-first history, got %+v", history)
	}
}
