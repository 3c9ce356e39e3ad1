package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/leave"
	"leavehub/internal/domain/notifications"
	"leavehub/internal/platform/jobs"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Jobs: jobsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermPolicyWrite, h.Perms)).Post("/types", h.handleCreateType)
		r.With(middleware.RequirePermission(auth.PermPolicyWrite, h.Perms)).Delete("/types/{typeID}", h.handleDeactivateType)
		r.With(middleware.RequirePermission(auth.PermBalancesRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermBalancesAdjust, h.Perms)).Post("/balances/initialize", h.handleInitializeBalances)
		r.With(middleware.RequirePermission(auth.PermBalancesAdjust, h.Perms)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.PermBalancesAdjust, h.Perms)).Post("/balances/bulk-adjust", h.handleBulkAdjustBalances)
		r.With(middleware.RequirePermission(auth.PermRolloverRun, h.Perms)).Post("/rollover/run", h.handleRunRollover)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve-debit", h.handleApproveAndDebitRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policy", h.handleGetPolicy)
		r.With(middleware.RequirePermission(auth.PermPolicyWrite, h.Perms)).Post("/policy", h.handleSavePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policy/history", h.handlePolicyHistory)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	types, err := h.Service.ListTypes(r.Context(), includeInactive)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_types_failed", "failed to list leave types", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload leave.LeaveType
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Range("defaultDays", payload.DefaultDays, 0, 365, "must be between 0 and 365")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateType(r.Context(), payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_type_create_failed", "failed to create leave type", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.type.create", "leave_type", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit leave.type.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateType(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	typeID := chi.URLParam(r, "typeID")
	if err := h.Service.DeactivateType(r.Context(), typeID); err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "leave_type_delete_failed", "failed to deactivate leave type", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.type.deactivate", "leave_type", typeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit leave.type.deactivate failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deactivated"}, middleware.GetRequestID(r.Context()))
}

// resolveEmployeeScope narrows the employeeId query parameter to what the
// caller's role may see: employees always resolve to themselves, managers to
// themselves or a direct report, HR and admins to anyone.
func (h *Handler) resolveEmployeeScope(ctx context.Context, user auth.UserContext, requested string) (string, error) {
	selfEmployeeID, err := h.Service.EmployeeIDByUserID(ctx, user.UserID)
	if err != nil {
		return "", err
	}

	switch user.RoleName {
	case auth.RoleEmployee:
		return selfEmployeeID, nil
	case auth.RoleManager:
		if requested == "" || requested == selfEmployeeID {
			return selfEmployeeID, nil
		}
		allowed, err := h.Service.IsManagerOf(ctx, selfEmployeeID, requested)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", leave.ErrForbidden
		}
		return requested, nil
	default:
		if requested == "" {
			return selfEmployeeID, nil
		}
		return requested, nil
	}
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, err := h.resolveEmployeeScope(r.Context(), user, r.URL.Query().Get("employeeId"))
	if err != nil {
		if errors.Is(err, leave.ErrForbidden) {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "leave_balances_failed", "failed to resolve employee", middleware.GetRequestID(r.Context()))
		return
	}
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_request", "employee id required", middleware.GetRequestID(r.Context()))
		return
	}

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	balances, err := h.Service.Balances(r.Context(), employeeID, year)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "leave_balances_failed", "failed to list balances", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

type initializeBalancesRequest struct {
	EmployeeID string `json:"employeeId"`
	Year       int    `json:"year"`
}

func (h *Handler) handleInitializeBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload initializeBalancesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.EmployeeID) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employee id required", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Service.InitializeBalances(r.Context(), payload.EmployeeID, payload.Year)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "balance_initialize_failed", "failed to initialize balances", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.balance.initialize", "leave_balance", payload.EmployeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit leave.balance.initialize failed", "err", err)
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

type adjustBalanceRequest struct {
	EmployeeID  string            `json:"employeeId"`
	LeaveTypeID string            `json:"leaveTypeId"`
	Patch       leave.AdjustPatch `json:"patch"`
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type id is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	balance, err := h.Service.AdjustBalance(r.Context(), user.UserID, payload.EmployeeID, payload.LeaveTypeID, payload.Patch)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee or leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "leave_adjust_failed", "failed to adjust balance", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.balance.adjust", "leave_balance", balance.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit leave.balance.adjust failed", "err", err)
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

type bulkAdjustRequest struct {
	Items []leave.BulkAdjustItem `json:"items"`
}

func (h *Handler) handleBulkAdjustBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload bulkAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if len(payload.Items) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "at least one item is required", middleware.GetRequestID(r.Context()))
		return
	}

	outcomes := h.Service.BulkAdjustBalances(r.Context(), user.UserID, payload.Items)
	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.balance.bulk_adjust", "leave_balance", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"items":     len(payload.Items),
		"succeeded": succeeded,
	}); err != nil {
		slog.Warn("audit leave.balance.bulk_adjust failed", "err", err)
	}
	api.Success(w, map[string]any{"outcomes": outcomes, "succeeded": succeeded}, middleware.GetRequestID(r.Context()))
}

type rolloverRequest struct {
	NewYear  int                   `json:"newYear"`
	Override *leave.PolicyOverride `json:"override,omitempty"`
}

func (h *Handler) handleRunRollover(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload rolloverRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	var result leave.RolloverResult
	var err error
	if h.Jobs != nil {
		raw, runErr := h.Jobs.RunNow(r.Context(), jobs.JobLeaveRollover, func(runCtx context.Context) (any, error) {
			return h.Service.RunRollover(runCtx, payload.NewYear, payload.Override)
		})
		err = runErr
		if summary, ok := raw.(leave.RolloverResult); ok {
			result = summary
		}
	} else {
		result, err = h.Service.RunRollover(r.Context(), payload.NewYear, payload.Override)
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "rollover_failed", "failed to run rollover", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.rollover.run", "leave_balance", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit leave.rollover.run failed", "err", err)
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := leave.RequestFilter{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := shared.ParseDate(raw); err == nil {
			filter.From = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := shared.ParseDate(raw); err == nil {
			filter.To = parsed
		}
	}

	switch user.RoleName {
	case auth.RoleEmployee:
		selfEmployeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil || selfEmployeeID == "" {
			api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to resolve employee", middleware.GetRequestID(r.Context()))
			return
		}
		filter.EmployeeID = selfEmployeeID
	case auth.RoleManager:
		selfEmployeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to resolve employee", middleware.GetRequestID(r.Context()))
			return
		}
		filter.ManagerEmployeeID = selfEmployeeID
	default:
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	}

	page := shared.ParsePagination(r, 100, 500)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	requests, total, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	req, err := h.Service.Request(r.Context(), requestID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
		return
	}

	allowed, err := h.canAccessRequest(r.Context(), user, req.EmployeeID)
	if err != nil {
		slog.Warn("leave request access check failed", "requestId", requestID, "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) canAccessRequest(ctx context.Context, user auth.UserContext, requestEmployeeID string) (bool, error) {
	if user.RoleName == auth.RoleHR || user.RoleName == auth.RoleAdmin {
		return true, nil
	}

	selfEmployeeID, err := h.Service.EmployeeIDByUserID(ctx, user.UserID)
	if err != nil {
		return false, err
	}
	if selfEmployeeID == "" {
		return false, nil
	}
	if selfEmployeeID == requestEmployeeID {
		return true, nil
	}
	if user.RoleName == auth.RoleManager {
		return h.Service.IsManagerOf(ctx, selfEmployeeID, requestEmployeeID)
	}
	return false, nil
}

type leaveRequestPayload struct {
	EmployeeID  string `json:"employeeId"`
	LeaveTypeID string `json:"leaveTypeId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	IsHalfDay   bool   `json:"isHalfDay"`
	HalfDayType string `json:"halfDayType"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload leaveRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	// Non-HR callers always file for themselves.
	if user.RoleName != auth.RoleHR && user.RoleName != auth.RoleAdmin {
		if id, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID); err == nil && id != "" {
			payload.EmployeeID = id
		} else {
			slog.Warn("leave request self employee lookup failed", "err", err)
		}
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type id is required")
	startDate, startOK := v.Date("startDate", payload.StartDate)
	endDate, endOK := v.Date("endDate", payload.EndDate)
	if startOK && endOK {
		v.DateOrder("startDate", startDate, "endDate", endDate)
	}
	if payload.IsHalfDay {
		v.Enum("halfDayType", payload.HalfDayType, []string{"morning", "afternoon"}, "must be morning or afternoon")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.SubmitRequest(r.Context(), leave.SubmitInput{
		EmployeeID:  payload.EmployeeID,
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   startDate,
		EndDate:     endDate,
		IsHalfDay:   payload.IsHalfDay,
		HalfDayType: strings.ToLower(strings.TrimSpace(payload.HalfDayType)),
		Reason:      payload.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrOverlappingRequest):
			api.Fail(w, http.StatusConflict, "overlapping_request", "an overlapping leave request already exists", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrInsufficientBalance):
			api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee or leave type not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "leave_request_failed", "failed to create request", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request.create", "leave_request", result.Request.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"employeeId":  payload.EmployeeID,
		"leaveTypeId": payload.LeaveTypeID,
		"startDate":   payload.StartDate,
		"endDate":     payload.EndDate,
		"isHalfDay":   payload.IsHalfDay,
		"days":        result.Request.NumberOfDays,
	}); err != nil {
		slog.Warn("audit leave.request.create failed", "err", err)
	}

	if h.Notify != nil && len(result.NotifyUserIDs) > 0 {
		body := fmt.Sprintf("A leave request for %.1f day(s) is awaiting approval.", result.Request.NumberOfDays)
		h.Notify.CreateMany(r.Context(), result.NotifyUserIDs, notifications.TypeLeaveSubmitted, "Leave request submitted", body)
	}

	api.Created(w, result.Request, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve", func(ctx context.Context, requestID string, actor leave.Actor) (leave.DecisionResult, error) {
		return h.Service.ApproveRequest(ctx, requestID, actor)
	})
}

func (h *Handler) handleApproveAndDebitRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve_debit", func(ctx context.Context, requestID string, actor leave.Actor) (leave.DecisionResult, error) {
		return h.Service.ApproveAndDebitRequest(ctx, requestID, actor)
	})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action string, run func(context.Context, string, leave.Actor) (leave.DecisionResult, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	result, err := run(r.Context(), requestID, leave.Actor{UserID: user.UserID, RoleName: user.RoleName})
	if err != nil {
		h.writeDecisionError(w, r, err)
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request."+action, "leave_request", requestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"employeeId": result.Request.EmployeeID}); err != nil {
		slog.Warn("audit leave request decision failed", "action", action, "err", err)
	}
	if h.Notify != nil && result.EmployeeUserID != "" {
		body := fmt.Sprintf("Your leave request for %.1f day(s) was approved.", result.Request.NumberOfDays)
		if err := h.Notify.Create(r.Context(), result.EmployeeUserID, notifications.TypeLeaveApproved, "Leave approved", body); err != nil {
			slog.Warn("leave approved notification failed", "err", err)
		}
	}
	api.Success(w, map[string]string{"status": result.Request.Status}, middleware.GetRequestID(r.Context()))
}

type rejectRequestPayload struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload rejectRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	result, err := h.Service.RejectRequest(r.Context(), requestID, leave.Actor{UserID: user.UserID, RoleName: user.RoleName}, payload.Reason)
	if err != nil {
		if errors.Is(err, leave.ErrInvalidReason) {
			api.Fail(w, http.StatusBadRequest, "invalid_reason", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		h.writeDecisionError(w, r, err)
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request.reject", "leave_request", requestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"employeeId": result.Request.EmployeeID,
		"reason":     result.Request.RejectionReason,
	}); err != nil {
		slog.Warn("audit leave.request.reject failed", "err", err)
	}
	if h.Notify != nil && result.EmployeeUserID != "" {
		body := fmt.Sprintf("Your leave request was rejected: %s", result.Request.RejectionReason)
		if err := h.Notify.Create(r.Context(), result.EmployeeUserID, notifications.TypeLeaveRejected, "Leave rejected", body); err != nil {
			slog.Warn("leave rejected notification failed", "err", err)
		}
	}
	api.Success(w, map[string]string{"status": leave.StatusRejected}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	request, err := h.Service.CancelRequest(r.Context(), requestID, user.UserID)
	if err != nil {
		h.writeDecisionError(w, r, err)
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request.cancel", "leave_request", requestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"employeeId": request.EmployeeID}); err != nil {
		slog.Warn("audit leave.request.cancel failed", "err", err)
	}
	api.Success(w, map[string]string{"status": leave.StatusCancelled}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeDecisionError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", "request is no longer pending", requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "leave_request_failed", "failed to update request", requestID)
	}
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Service.CurrentPolicy(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_failed", "failed to load policy", middleware.GetRequestID(r.Context()))
		return
	}
	if policy == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "no default balance policy configured", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSavePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload leave.DefaultBalance
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Range("annualLeave", payload.AnnualLeave, 0, 365, "must be between 0 and 365")
	v.Range("sickLeave", payload.SickLeave, 0, 365, "must be between 0 and 365")
	v.Range("personalLeave", payload.PersonalLeave, 0, 365, "must be between 0 and 365")
	v.Range("maxCarryOver", payload.MaxCarryOver, 0, 365, "must be between 0 and 365")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	saved, err := h.Service.SavePolicy(r.Context(), user.UserID, payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_save_failed", "failed to save policy", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.policy.save", "default_balance", saved.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, saved); err != nil {
		slog.Warn("audit leave.policy.save failed", "err", err)
	}
	api.Created(w, saved, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePolicyHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.PolicyHistory(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_failed", "failed to load policy history", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}
