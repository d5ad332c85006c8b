package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// allowedTransition reports whether the acting role may move a booking to the
// given status. The table is exhaustive over the closed role set:
//
//	ADMIN      -> APPROVED, ASSIGNED, CANCELLED
//	INSTRUCTOR -> ASSIGNED, COMPLETED, CANCELLED
//	STUDENT    -> CANCELLED
func allowedTransition(role Role, next Status) bool {
	switch role {
	case RoleAdmin:
		return next == StatusApproved || next == StatusAssigned || next == StatusCancelled
	case RoleInstructor:
		return next == StatusAssigned || next == StatusCompleted || next == StatusCancelled
	case RoleStudent:
		return next == StatusCancelled
	default:
		return false
	}
}

// UpdateBookingStatus applies a status transition. Role permission is checked
// first, then ownership: students and instructors may only touch their own
// bookings, while admins act anywhere inside their tenant. No transition is
// defined out of a terminal status, so those requests fail the same way as
// any disallowed move. Concurrent transitions are last-write-wins; the final
// status is always one a role was permitted to set.
func (s *service) UpdateBookingStatus(ctx context.Context, actor requesttrace.Actor, id uuid.UUID, next Status) (Booking, error) {
	role, err := actorRole(actor)
	if err != nil {
		return Booking{}, err
	}
	if _, ok := StatusFromString(string(next)); !ok {
		return Booking{}, &ValidationError{Fields: FieldErrors{"status": {"unknown status"}}}
	}

	record, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrBookingNotFound) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, err
	}
	current := mapBooking(record)

	if current.Status.Terminal() {
		return Booking{}, forbidden("booking is already %s", current.Status)
	}
	if !allowedTransition(role, next) {
		return Booking{}, forbidden("role %s may not set status %s", role, next)
	}

	switch role {
	case RoleStudent:
		if current.Student.ID != actor.UserID {
			return Booking{}, forbidden("students may only cancel their own bookings")
		}
	case RoleInstructor:
		if current.Instructor.ID != actor.UserID {
			return Booking{}, forbidden("instructors may only update their own bookings")
		}
	case RoleAdmin:
		// tenant-wide
	}

	var assignedAt *time.Time
	if next == StatusAssigned {
		t := s.now().UTC()
		assignedAt = &t
	}

	updated, err := s.repo.UpdateBookingStatus(ctx, id, string(next), assignedAt)
	if err != nil {
		if errors.Is(err, persistence.ErrBookingNotFound) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, err
	}
	booking := mapBooking(updated)

	after := map[string]any{"status": booking.Status}
	if booking.AssignedAt != nil {
		after["assignedAt"] = booking.AssignedAt
	}
	s.audit.Record(ctx, AuditEvent{
		Action:        auditActionForStatus(next),
		Entity:        "booking",
		EntityID:      booking.ID,
		UserID:        actorUserID(actor),
		Before:        map[string]any{"status": current.Status},
		After:         after,
		CorrelationID: actor.Correlation(),
	})

	s.logger.Info("booking status updated",
		zap.String("booking_id", booking.ID.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(booking.Status)),
		zap.String("role", string(role)),
	)

	return booking, nil
}
