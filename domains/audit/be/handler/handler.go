// Package handler exposes the audit trail HTTP surface (admin only).
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/service"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/logging"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// Handler carries the audit routes.
type Handler struct {
	svc service.Service
}

// New constructs the audit handler.
func New(svc service.Service) *Handler {
	if svc == nil {
		panic("audit service is required")
	}
	return &Handler{svc: svc}
}

// Routes mounts the audit endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listAuditLogs)
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requesttrace.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
		return
	}
	if actor.Role != "ADMIN" {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "only admins may read the audit trail"})
		return
	}

	opts := service.ListOptions{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid user id"})
			return
		}
		opts.UserID = &id
	}
	if action := r.URL.Query().Get("action"); action != "" {
		opts.Action = &action
	}

	page, err := h.svc.List(r.Context(), opts)
	if err != nil {
		if errors.Is(err, tenant.ErrMissingScope) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "tenant scope required"})
			return
		}
		logging.FromRequest(r, zap.NewNop()).Error("audit request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
