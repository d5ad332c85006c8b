// Package service implements the booking-scheduling core: conflict detection,
// the booking status lifecycle, instructor availability, and the weekly
// schedule projection. Every operation runs under the tenant scope resolved
// by the identity middleware; the repository refuses tenant-unscoped access.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/repo"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// Role is the closed set of acting roles. Adding a role is a compile-time
// visible change: every switch over Role must be extended.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// RoleFromString parses a raw role string against the closed role set.
func RoleFromString(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Status is the closed set of booking statuses.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusAssigned  Status = "ASSIGNED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// StatusFromString parses a raw status string against the closed status set.
func StatusFromString(s string) (Status, bool) {
	switch Status(s) {
	case StatusRequested, StatusApproved, StatusAssigned, StatusCompleted, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is defined out of the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// blockingStatuses is the canonical non-terminal set: a booking in one of
// these statuses blocks overlapping bookings for its instructor.
var blockingStatuses = []Status{StatusRequested, StatusApproved, StatusAssigned}

// visibleStatuses is the set projected into the weekly schedule; cancelled
// bookings are excluded from the calendar view.
var visibleStatuses = []Status{StatusRequested, StatusApproved, StatusAssigned, StatusCompleted}

func statusStrings(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// Audit actions emitted by scheduling operations.
const (
	ActionBookingCreated   = "BOOKING_CREATED"
	ActionBookingApproved  = "BOOKING_APPROVED"
	ActionBookingAssigned  = "BOOKING_ASSIGNED"
	ActionBookingCompleted = "BOOKING_COMPLETED"
	ActionBookingCancelled = "BOOKING_CANCELLED"
	ActionBookingEscalated = "BOOKING_ESCALATED"
)

// auditActionForStatus maps a reached status to its audit action.
func auditActionForStatus(status Status) string {
	switch status {
	case StatusApproved:
		return ActionBookingApproved
	case StatusAssigned:
		return ActionBookingAssigned
	case StatusCompleted:
		return ActionBookingCompleted
	case StatusCancelled:
		return ActionBookingCancelled
	default:
		return ActionBookingCreated
	}
}

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors. A record outside the caller's tenant is reported as
// not found, indistinguishable from a missing id.
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSlotNotFound    = errors.New("availability slot not found")
	ErrBookingConflict = errors.New("instructor already has a booking in this time slot")
	ErrSlotExists      = errors.New("availability slot already exists")
	ErrForbidden       = errors.New("forbidden")
)

// ForbiddenError carries the specific role/ownership reason so callers can
// distinguish "not yours" from "not allowed for your role".
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrForbidden) match any ForbiddenError.
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(format string, args ...any) error {
	return &ForbiddenError{Reason: fmt.Sprintf(format, args...)}
}

// Party is the joined identity summary embedded in booking responses.
type Party struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Booking is the domain view of a booking record.
type Booking struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Student     Party      `json:"student"`
	Instructor  Party      `json:"instructor"`
	Date        string     `json:"date"`
	StartTime   string     `json:"startTime"`
	EndTime     string     `json:"endTime"`
	Status      Status     `json:"status"`
	Notes       *string    `json:"notes,omitempty"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
	EscalatedAt *time.Time `json:"escalatedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Availability is the domain view of an instructor's advertised open window.
type Availability struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenantId"`
	Instructor Party     `json:"instructor"`
	Date       string    `json:"date"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Pagination carries list metadata.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// BookingPage wraps a page of bookings with pagination metadata.
type BookingPage struct {
	Bookings   []Booking  `json:"bookings"`
	Pagination Pagination `json:"pagination"`
}

// WeeklySchedule is the 7-day read view: bookings grouped by ISO date key,
// within-day order preserved from the underlying date/start-time sort.
type WeeklySchedule struct {
	WeekStart string               `json:"weekStart"`
	WeekEnd   string               `json:"weekEnd"`
	Schedule  map[string][]Booking `json:"schedule"`
}

// CreateBookingInput represents a student's booking request.
type CreateBookingInput struct {
	InstructorID uuid.UUID
	Date         string
	StartTime    string
	EndTime      string
	Notes        *string
}

// ConflictProbe describes a candidate interval for HasConflict.
type ConflictProbe struct {
	InstructorID     uuid.UUID
	Date             string
	StartTime        string
	EndTime          string
	ExcludeBookingID *uuid.UUID
}

// ListBookingsOptions controls filtering and pagination for ListBookings.
type ListBookingsOptions struct {
	Status *string
	Page   int
	Limit  int
}

// SetAvailabilityInput represents an instructor publishing an open window.
type SetAvailabilityInput struct {
	Date      string
	StartTime string
	EndTime   string
}

// ListAvailabilityOptions controls the optional availability filters.
type ListAvailabilityOptions struct {
	InstructorID *uuid.UUID
	Date         *string
}

// AuditEvent is what scheduling operations hand to the audit sink. Emission
// is fire-and-forget: sink failures never abort the primary operation.
type AuditEvent struct {
	Action        string
	Entity        string
	EntityID      uuid.UUID
	UserID        *uuid.UUID
	Before        map[string]any
	After         map[string]any
	CorrelationID string
}

// AuditSink consumes scheduling audit events.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// Service defines the scheduling operations consumed by the HTTP layer.
type Service interface {
	CreateBooking(ctx context.Context, actor requesttrace.Actor, input CreateBookingInput) (Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	ListBookings(ctx context.Context, actor requesttrace.Actor, opts ListBookingsOptions) (BookingPage, error)
	UpdateBookingStatus(ctx context.Context, actor requesttrace.Actor, id uuid.UUID, next Status) (Booking, error)
	HasConflict(ctx context.Context, probe ConflictProbe) (bool, error)
	WeeklySchedule(ctx context.Context, actor requesttrace.Actor, weekStart string) (WeeklySchedule, error)
	SetAvailability(ctx context.Context, actor requesttrace.Actor, input SetAvailabilityInput) (Availability, error)
	ListAvailability(ctx context.Context, opts ListAvailabilityOptions) ([]Availability, error)
	DeleteAvailability(ctx context.Context, actor requesttrace.Actor, slotID uuid.UUID) error
	ListInstructors(ctx context.Context) ([]Party, error)
}

type service struct {
	repo   repo.Repository
	audit  AuditSink
	logger *zap.Logger
	roster *rosterCache
	now    func() time.Time
}

// New constructs the scheduling Service.
func New(r repo.Repository, audit AuditSink, logger *zap.Logger) Service {
	if r == nil {
		panic("scheduling repository is required")
	}
	if audit == nil {
		panic("audit sink is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{
		repo:   r,
		audit:  audit,
		logger: logger,
		roster: newRosterCache(rosterCacheTTL, time.Now),
		now:    time.Now,
	}
}

// actorRole parses the acting role against the closed role set.
func actorRole(actor requesttrace.Actor) (Role, error) {
	role, ok := RoleFromString(actor.Role)
	if !ok {
		return "", &ValidationError{Fields: FieldErrors{"role": {fmt.Sprintf("unknown role %q", actor.Role)}}}
	}
	return role, nil
}

func mapBooking(record persistence.Booking) Booking {
	status, _ := StatusFromString(record.Status)
	return Booking{
		ID:          record.BookingID,
		TenantID:    record.TenantID,
		Student:     Party(record.Student),
		Instructor:  Party(record.Instructor),
		Date:        record.Date,
		StartTime:   record.StartTime,
		EndTime:     record.EndTime,
		Status:      status,
		Notes:       record.Notes,
		AssignedAt:  record.AssignedAt,
		EscalatedAt: record.EscalatedAt,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapAvailability(record persistence.AvailabilitySlot) Availability {
	return Availability{
		ID:         record.SlotID,
		TenantID:   record.TenantID,
		Instructor: Party(record.Instructor),
		Date:       record.Date,
		StartTime:  record.StartTime,
		EndTime:    record.EndTime,
		CreatedAt:  record.CreatedAt,
	}
}
