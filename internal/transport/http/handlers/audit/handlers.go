package audithandler

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/export", h.handleExport)
	})
}

func filterFromQuery(r *http.Request) audit.Filter {
	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
		ActorUser:  r.URL.Query().Get("actorId"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := shared.ParseDate(raw); err == nil {
			filter.From = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := shared.ParseDate(raw); err == nil {
			// Make the upper bound inclusive of the whole day.
			filter.To = parsed.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return filter
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	page := shared.ParsePagination(r, 50, 500)
	includeDetails := r.URL.Query().Get("details") == "true"

	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	api.Success(w, map[string]any{"events": events, "total": total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := filterFromQuery(r)
	events, err := h.Service.ListExport(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.Record(r.Context(), user.UserID, audit.ActionExport, "audit_events", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"rows": len(events)}); err != nil {
		slog.Warn("audit export record failed", "err", err)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=audit-%s.csv", time.Now().Format("2006-01-02")))
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actorId", "action", "entityType", "entityId", "requestId", "ip", "createdAt"}); err != nil {
		slog.Warn("audit export header write failed", "err", err)
		return
	}
	for _, evt := range events {
		record := []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(record); err != nil {
			slog.Warn("audit export row write failed", "err", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
