// Package handler exposes the scheduling HTTP surface. Identity and tenant
// scope are resolved by upstream middleware; handlers decode, delegate to the
// service and render.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/service"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// Handler carries the scheduling routes.
type Handler struct {
	svc service.Service
}

// New constructs the scheduling handler.
func New(svc service.Service) *Handler {
	if svc == nil {
		panic("scheduling service is required")
	}
	return &Handler{svc: svc}
}

// Routes mounts the scheduling endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/bookings", h.createBooking)
	r.Get("/bookings", h.listBookings)
	r.Get("/bookings/{bookingID}", h.getBooking)
	r.Patch("/bookings/{bookingID}/status", h.updateBookingStatus)
	r.Get("/schedule/weekly", h.weeklySchedule)
	r.Post("/availability", h.setAvailability)
	r.Get("/availability", h.listAvailability)
	r.Delete("/availability/{slotID}", h.deleteAvailability)
	r.Get("/instructors", h.listInstructors)
	return r
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (requesttrace.Actor, bool) {
	actor, ok := requesttrace.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
		return requesttrace.Actor{}, false
	}
	return actor, true
}

type createBookingRequest struct {
	InstructorID uuid.UUID `json:"instructorId"`
	Date         string    `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	Notes        *string   `json:"notes"`
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), actor, service.CreateBookingInput{
		InstructorID: req.InstructorID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid booking id"})
		return
	}

	booking, err := h.svc.GetBooking(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	opts := service.ListBookingsOptions{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = &status
	}

	page, err := h.svc.ListBookings(r.Context(), actor, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateBookingStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid booking id"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	next, okStatus := service.StatusFromString(req.Status)
	if !okStatus {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "validation failed",
			Fields: map[string][]string{"status": {"unknown status"}},
		})
		return
	}

	booking, err := h.svc.UpdateBookingStatus(r.Context(), actor, id, next)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) weeklySchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("weekStart")
	schedule, err := h.svc.WeeklySchedule(r.Context(), actor, weekStart)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

type setAvailabilityRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	slot, err := h.svc.SetAvailability(r.Context(), actor, service.SetAvailabilityInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, slot)
}

func (h *Handler) listAvailability(w http.ResponseWriter, r *http.Request) {
	opts := service.ListAvailabilityOptions{}
	if raw := r.URL.Query().Get("instructorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid instructor id"})
			return
		}
		opts.InstructorID = &id
	}
	if date := r.URL.Query().Get("date"); date != "" {
		opts.Date = &date
	}

	slots, err := h.svc.ListAvailability(r.Context(), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"availability": slots})
}

func (h *Handler) deleteAvailability(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid slot id"})
		return
	}

	if err := h.svc.DeleteAvailability(r.Context(), actor, id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listInstructors(w http.ResponseWriter, r *http.Request) {
	instructors, err := h.svc.ListInstructors(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"instructors": instructors})
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
