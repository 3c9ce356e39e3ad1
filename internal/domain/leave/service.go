package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leavehub/internal/domain/auth"
)

var ErrInvalidReason = errors.New("rejection reason must be between 5 and 500 characters")

type Service struct {
	Store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Actor identifies who is performing a lifecycle transition.
type Actor struct {
	UserID   string
	RoleName string
}

type SubmitInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	IsHalfDay   bool
	HalfDayType string
	Reason      string
}

type SubmitResult struct {
	Request       LeaveRequest
	NotifyUserIDs []string
}

// SubmitRequest creates a pending request. The overlap check and the
// advisory balance check run inside one transaction with the insert; the
// balance is not debited or reserved at submission time.
func (s *Service) SubmitRequest(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	var result SubmitResult

	leaveType, err := s.Store.TypeByID(ctx, input.LeaveTypeID)
	if err != nil {
		return result, err
	}
	if leaveType == nil || !leaveType.IsActive {
		return result, fmt.Errorf("leave type %s: %w", input.LeaveTypeID, ErrNotFound)
	}
	active, err := s.Store.EmployeeActive(ctx, input.EmployeeID)
	if err != nil {
		return result, err
	}
	if !active {
		return result, fmt.Errorf("employee %s: %w", input.EmployeeID, ErrNotFound)
	}

	days, err := CalculateRequestDays(input.StartDate, input.EndDate, input.IsHalfDay)
	if err != nil {
		return result, err
	}

	request := LeaveRequest{
		EmployeeID:   input.EmployeeID,
		LeaveTypeID:  input.LeaveTypeID,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		IsHalfDay:    input.IsHalfDay,
		HalfDayType:  input.HalfDayType,
		NumberOfDays: days,
		Reason:       strings.TrimSpace(input.Reason),
		Status:       StatusPending,
	}

	year := CurrentFinancialYear(input.StartDate)
	id, err := s.Store.CreateRequestGuarded(ctx, request, year)
	if err != nil {
		return result, err
	}
	request.ID = id
	result.Request = request

	managerUserID, err := s.Store.ManagerUserIDForEmployee(ctx, input.EmployeeID)
	if err == nil && managerUserID != "" {
		result.NotifyUserIDs = []string{managerUserID}
		return result, nil
	}
	// No direct manager: fan out to everyone who can decide the request.
	userIDs, err := s.Store.UserIDsWithRoles(ctx, []string{auth.RoleManager, auth.RoleHR, auth.RoleAdmin})
	if err == nil {
		result.NotifyUserIDs = userIDs
	}
	return result, nil
}

type DecisionResult struct {
	Request        LeaveRequest
	EmployeeUserID string
}

// ApproveRequest transitions pending -> approved without touching the
// ledger. Debiting is a separate, explicitly named operation.
func (s *Service) ApproveRequest(ctx context.Context, requestID string, actor Actor) (DecisionResult, error) {
	request, err := s.loadPending(ctx, requestID)
	if err != nil {
		return DecisionResult{}, err
	}
	if err := s.authorizeDecision(ctx, actor, request.EmployeeID); err != nil {
		return DecisionResult{}, err
	}

	if err := s.Store.UpdateRequestDecision(ctx, requestID, StatusApproved, actor.UserID, ""); err != nil {
		return DecisionResult{}, err
	}
	request.Status = StatusApproved
	request.ApproverID = actor.UserID
	return s.decisionResult(ctx, *request)
}

// ApproveAndDebitRequest approves and debits usedDays in one transaction,
// for teams that reconcile the ledger at approval time.
func (s *Service) ApproveAndDebitRequest(ctx context.Context, requestID string, actor Actor) (DecisionResult, error) {
	request, err := s.loadPending(ctx, requestID)
	if err != nil {
		return DecisionResult{}, err
	}
	if err := s.authorizeDecision(ctx, actor, request.EmployeeID); err != nil {
		return DecisionResult{}, err
	}

	year := CurrentFinancialYear(request.StartDate)
	if err := s.Store.ApproveAndDebit(ctx, *request, actor.UserID, year); err != nil {
		return DecisionResult{}, err
	}
	request.Status = StatusApproved
	request.ApproverID = actor.UserID
	return s.decisionResult(ctx, *request)
}

func (s *Service) RejectRequest(ctx context.Context, requestID string, actor Actor, reason string) (DecisionResult, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < 5 || len(reason) > 500 {
		return DecisionResult{}, ErrInvalidReason
	}

	request, err := s.loadPending(ctx, requestID)
	if err != nil {
		return DecisionResult{}, err
	}
	if err := s.authorizeDecision(ctx, actor, request.EmployeeID); err != nil {
		return DecisionResult{}, err
	}

	if err := s.Store.UpdateRequestDecision(ctx, requestID, StatusRejected, actor.UserID, reason); err != nil {
		return DecisionResult{}, err
	}
	request.Status = StatusRejected
	request.ApproverID = actor.UserID
	request.RejectionReason = reason
	return s.decisionResult(ctx, *request)
}

// CancelRequest is owner-only and limited to pending requests; approved and
// rejected are terminal.
func (s *Service) CancelRequest(ctx context.Context, requestID, actorUserID string) (LeaveRequest, error) {
	request, err := s.loadPending(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	ownerEmployeeID, err := s.Store.EmployeeIDByUserID(ctx, actorUserID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if ownerEmployeeID == "" || ownerEmployeeID != request.EmployeeID {
		return LeaveRequest{}, ErrForbidden
	}

	if err := s.Store.UpdateRequestStatus(ctx, requestID, StatusCancelled); err != nil {
		return LeaveRequest{}, err
	}
	request.Status = StatusCancelled
	return *request, nil
}

func (s *Service) Request(ctx context.Context, requestID string) (LeaveRequest, error) {
	request, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if request == nil {
		return LeaveRequest{}, fmt.Errorf("leave request %s: %w", requestID, ErrNotFound)
	}
	return *request, nil
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, int, error) {
	return s.Store.ListRequests(ctx, filter)
}

func (s *Service) loadPending(ctx context.Context, requestID string) (*LeaveRequest, error) {
	request, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("leave request %s: %w", requestID, ErrNotFound)
	}
	if request.Status != StatusPending {
		return nil, fmt.Errorf("request is %s: %w", request.Status, ErrInvalidState)
	}
	return request, nil
}

func (s *Service) authorizeDecision(ctx context.Context, actor Actor, employeeID string) error {
	if !auth.CanApprove(actor.RoleName) {
		return ErrForbidden
	}
	if actor.RoleName != auth.RoleManager {
		return nil
	}
	actorEmployeeID, err := s.Store.EmployeeIDByUserID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	ok, err := s.Store.IsManagerOf(ctx, actorEmployeeID, employeeID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) decisionResult(ctx context.Context, request LeaveRequest) (DecisionResult, error) {
	result := DecisionResult{Request: request}
	userID, err := s.Store.UserIDByEmployeeID(ctx, request.EmployeeID)
	if err != nil {
		slog.Warn("employee user lookup failed, decision notification skipped", "employeeId", request.EmployeeID, "err", err)
		return result, nil
	}
	result.EmployeeUserID = userID
	return result, nil
}

// RunRollover executes the financial-year rollover against this service's
// store and clock.
func (s *Service) RunRollover(ctx context.Context, newYear int, override *PolicyOverride) (RolloverResult, error) {
	if newYear == 0 {
		newYear = CurrentFinancialYear(s.now()) + 1
	}
	return ProcessRollover(ctx, s.Store, newYear, override)
}

func (s *Service) CurrentPolicy(ctx context.Context) (*DefaultBalance, error) {
	return s.Store.CurrentDefaultBalance(ctx)
}

// SavePolicy appends a new default-balance version and moves the current
// pointer to it.
func (s *Service) SavePolicy(ctx context.Context, adminID string, payload DefaultBalance) (DefaultBalance, error) {
	payload.CreatedBy = adminID
	payload.AnnualLeave = RoundDays(payload.AnnualLeave)
	payload.SickLeave = RoundDays(payload.SickLeave)
	payload.PersonalLeave = RoundDays(payload.PersonalLeave)
	payload.MaxCarryOver = RoundDays(payload.MaxCarryOver)
	return s.Store.SaveDefaultBalance(ctx, payload)
}

func (s *Service) PolicyHistory(ctx context.Context) ([]DefaultBalance, error) {
	return s.Store.DefaultBalanceHistory(ctx)
}

func (s *Service) ListTypes(ctx context.Context, includeInactive bool) ([]LeaveType, error) {
	return s.Store.ListTypes(ctx, includeInactive)
}

func (s *Service) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return "", fmt.Errorf("leave type name is required")
	}
	payload.DefaultDays = RoundDays(payload.DefaultDays)
	payload.MaxCarryForward = RoundDays(payload.MaxCarryForward)
	return s.Store.CreateType(ctx, payload)
}

func (s *Service) DeactivateType(ctx context.Context, leaveTypeID string) error {
	return s.Store.DeactivateType(ctx, leaveTypeID)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	return s.Store.EmployeeIDByUserID(ctx, userID)
}

func (s *Service) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	return s.Store.IsManagerOf(ctx, managerEmployeeID, employeeID)
}

func (s *Service) AllBalancesForYear(ctx context.Context, year int) ([]LeaveBalance, error) {
	return s.Store.AllBalancesForYear(ctx, ResolveFinancialYear(year, s.now()))
}

func (s *Service) UsageByType(ctx context.Context, year int) ([]UsageRow, error) {
	return s.Store.UsageByType(ctx, ResolveFinancialYear(year, s.now()))
}
