package reportshandler

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jung-kurt/gofpdf"

	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/leave"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	DB    *pgxpool.Pool
	Leave *leave.Service
	Perms middleware.PermissionStore
	Audit *audit.Service
}

func NewHandler(db *pgxpool.Pool, leaveSvc *leave.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{DB: db, Leave: leaveSvc, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/usage", h.handleUsage)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/requests.csv", h.handleRequestsCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/balances.csv", h.handleBalancesCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/balances.pdf", h.handleBalancePDF)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var pendingRequests int
	if err := h.DB.QueryRow(r.Context(), "SELECT COUNT(1) FROM leave_requests WHERE status = $1", leave.StatusPending).Scan(&pendingRequests); err != nil {
		slog.Warn("pending requests count failed", "err", err)
	}

	var activeEmployees int
	if err := h.DB.QueryRow(r.Context(), "SELECT COUNT(1) FROM employees WHERE status = 'active'").Scan(&activeEmployees); err != nil {
		slog.Warn("active employees count failed", "err", err)
	}

	var onLeaveToday int
	if err := h.DB.QueryRow(r.Context(), `
    SELECT COUNT(DISTINCT employee_id)
    FROM leave_requests
    WHERE status = $1 AND start_date <= CURRENT_DATE AND end_date >= CURRENT_DATE
  `, leave.StatusApproved).Scan(&onLeaveToday); err != nil {
		slog.Warn("on leave today count failed", "err", err)
	}

	var approvedThisYear float64
	if err := h.DB.QueryRow(r.Context(), `
    SELECT COALESCE(SUM(number_of_days),0)
    FROM leave_requests
    WHERE status = $1 AND start_date >= date_trunc('year', CURRENT_DATE)
  `, leave.StatusApproved).Scan(&approvedThisYear); err != nil {
		slog.Warn("approved days aggregate failed", "err", err)
	}

	api.Success(w, map[string]any{
		"pendingRequests":      pendingRequests,
		"activeEmployees":      activeEmployees,
		"onLeaveToday":         onLeaveToday,
		"approvedDaysThisYear": approvedThisYear,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	usage, err := h.Leave.UsageByType(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "usage_failed", "failed to load usage summary", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, usage, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestsCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := leave.RequestFilter{
		Status:     r.URL.Query().Get("status"),
		EmployeeID: r.URL.Query().Get("employeeId"),
		Limit:      10000,
	}
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

	requests, _, err := h.Leave.ListRequests(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export requests", middleware.GetRequestID(r.Context()))
		return
	}

	h.recordExport(r, user.UserID, "leave_requests", len(requests))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-requests-%s.csv", time.Now().Format("2006-01-02")))
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "employeeId", "leaveType", "startDate", "endDate", "days", "status", "reason"}); err != nil {
		slog.Warn("requests export header write failed", "err", err)
		return
	}
	for _, req := range requests {
		record := []string{
			req.ID,
			req.EmployeeID,
			req.LeaveTypeName,
			req.StartDate.Format("2006-01-02"),
			req.EndDate.Format("2006-01-02"),
			strconv.FormatFloat(req.NumberOfDays, 'f', 1, 64),
			req.Status,
			req.Reason,
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("requests export row write failed", "err", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("requests export flush failed", "err", err)
	}
}

func (h *Handler) handleBalancesCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	balances, err := h.Leave.AllBalancesForYear(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export balances", middleware.GetRequestID(r.Context()))
		return
	}

	h.recordExport(r, user.UserID, "leave_balances", len(balances))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%s.csv", time.Now().Format("2006-01-02")))
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"employeeId", "leaveType", "financialYear", "totalDays", "usedDays", "carriedOverDays", "remainingDays"}); err != nil {
		slog.Warn("balances export header write failed", "err", err)
		return
	}
	for _, bal := range balances {
		record := []string{
			bal.EmployeeID,
			bal.LeaveTypeName,
			strconv.Itoa(bal.FinancialYear),
			strconv.FormatFloat(bal.TotalDays, 'f', 1, 64),
			strconv.FormatFloat(bal.UsedDays, 'f', 1, 64),
			strconv.FormatFloat(bal.CarriedOverDays, 'f', 1, 64),
			strconv.FormatFloat(bal.RemainingDays, 'f', 1, 64),
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("balances export row write failed", "err", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("balances export flush failed", "err", err)
	}
}

// handleBalancePDF renders a single employee's balance statement.
func (h *Handler) handleBalancePDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_request", "employee id required", middleware.GetRequestID(r.Context()))
		return
	}
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))

	balances, err := h.Leave.Balances(r.Context(), employeeID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to load balances", middleware.GetRequestID(r.Context()))
		return
	}

	var firstName, lastName string
	if err := h.DB.QueryRow(r.Context(), "SELECT first_name, last_name FROM employees WHERE id = $1", employeeID).Scan(&firstName, &lastName); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	h.recordExport(r, user.UserID, "leave_balance_statement", len(balances))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Balance Statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s", firstName, lastName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(60, 8, "Leave type", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 8, "Used", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Carried", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Remaining", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, bal := range balances {
		pdf.CellFormat(60, 8, bal.LeaveTypeName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.1f", bal.TotalDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.1f", bal.UsedDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.1f", bal.CarriedOverDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.1f", bal.RemainingDays), "1", 1, "R", false, 0, "")
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=balance-statement-%s.pdf", employeeID))
	if err := pdf.Output(w); err != nil {
		slog.Warn("balance pdf write failed", "err", err)
	}
}

func (h *Handler) recordExport(r *http.Request, actorID, entityType string, rows int) {
	if err := h.Audit.Record(r.Context(), actorID, audit.ActionExport, entityType, "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"rows": rows}); err != nil {
		slog.Warn("audit export record failed", "entityType", entityType, "err", err)
	}
}
