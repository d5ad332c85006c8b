package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/service"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/logging"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError translates service errors into HTTP responses. Forbidden
// responses carry the specific role/ownership reason.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *service.ValidationError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: validation.Fields})
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrSlotNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrBookingConflict),
		errors.Is(err, service.ErrSlotExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, tenant.ErrMissingScope):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "tenant scope required"})
	default:
		logging.FromRequest(r, zap.NewNop()).Error("scheduling request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
