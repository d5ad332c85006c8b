package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// CreateBooking validates the requested slot, checks for instructor conflicts
// and inserts the booking in REQUESTED status. The insert revalidates the
// conflict under an instructor-day lock, so two racing requests for the same
// slot cannot both land.
func (s *service) CreateBooking(ctx context.Context, actor requesttrace.Actor, input CreateBookingInput) (Booking, error) {
	role, err := actorRole(actor)
	if err != nil {
		return Booking{}, err
	}
	if role != RoleStudent {
		return Booking{}, forbidden("only students may request bookings")
	}

	fields := FieldErrors{}
	if input.InstructorID == uuid.Nil {
		fields.add("instructorId", "is required")
	}
	validateTimeslot(fields, input.Date, input.StartTime, input.EndTime)
	if len(fields) > 0 {
		return Booking{}, &ValidationError{Fields: fields}
	}

	conflict, err := s.repo.HasOverlap(ctx, persistence.OverlapParams{
		InstructorID: input.InstructorID,
		Date:         input.Date,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Statuses:     statusStrings(blockingStatuses),
	})
	if err != nil {
		return Booking{}, err
	}
	if conflict {
		return Booking{}, ErrBookingConflict
	}

	record, err := s.repo.CreateBooking(ctx, persistence.CreateBookingParams{
		BookingID:        uuid.New(),
		StudentID:        actor.UserID,
		InstructorID:     input.InstructorID,
		Date:             input.Date,
		StartTime:        input.StartTime,
		EndTime:          input.EndTime,
		Status:           string(StatusRequested),
		Notes:            input.Notes,
		BlockingStatuses: statusStrings(blockingStatuses),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrBookingOverlap) {
			return Booking{}, ErrBookingConflict
		}
		return Booking{}, err
	}

	booking := mapBooking(record)

	s.audit.Record(ctx, AuditEvent{
		Action:   ActionBookingCreated,
		Entity:   "booking",
		EntityID: booking.ID,
		UserID:   actorUserID(actor),
		After: map[string]any{
			"status":       booking.Status,
			"date":         booking.Date,
			"startTime":    booking.StartTime,
			"endTime":      booking.EndTime,
			"instructorId": booking.Instructor.ID,
		},
		CorrelationID: actor.Correlation(),
	})

	s.logger.Info("booking requested",
		zap.String("booking_id", booking.ID.String()),
		zap.String("instructor_id", booking.Instructor.ID.String()),
		zap.String("date", booking.Date),
	)

	return booking, nil
}

// GetBooking returns a single booking inside the caller's tenant.
func (s *service) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	record, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrBookingNotFound) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, err
	}
	return mapBooking(record), nil
}

// ListBookings returns a page of bookings. Students and instructors see only
// their own bookings; admins see the whole tenant.
func (s *service) ListBookings(ctx context.Context, actor requesttrace.Actor, opts ListBookingsOptions) (BookingPage, error) {
	role, err := actorRole(actor)
	if err != nil {
		return BookingPage{}, err
	}

	params := persistence.ListBookingsParams{Page: opts.Page, Limit: opts.Limit}
	switch role {
	case RoleStudent:
		id := actor.UserID
		params.StudentID = &id
	case RoleInstructor:
		id := actor.UserID
		params.InstructorID = &id
	case RoleAdmin:
		// unscoped within the tenant
	}

	if opts.Status != nil && *opts.Status != "" {
		if _, ok := StatusFromString(*opts.Status); !ok {
			return BookingPage{}, &ValidationError{Fields: FieldErrors{"status": {"unknown status"}}}
		}
		params.Status = opts.Status
	}

	result, err := s.repo.ListBookings(ctx, params)
	if err != nil {
		return BookingPage{}, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	bookings := make([]Booking, 0, len(result.Bookings))
	for _, record := range result.Bookings {
		bookings = append(bookings, mapBooking(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + limit - 1) / limit
	}

	return BookingPage{
		Bookings: bookings,
		Pagination: Pagination{
			Total:      result.TotalItems,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// HasConflict reports whether the candidate interval overlaps any blocking
// booking for the instructor on that date. Back-to-back intervals are free.
func (s *service) HasConflict(ctx context.Context, probe ConflictProbe) (bool, error) {
	fields := FieldErrors{}
	if probe.InstructorID == uuid.Nil {
		fields.add("instructorId", "is required")
	}
	validateTimeslot(fields, probe.Date, probe.StartTime, probe.EndTime)
	if len(fields) > 0 {
		return false, &ValidationError{Fields: fields}
	}

	return s.repo.HasOverlap(ctx, persistence.OverlapParams{
		InstructorID:     probe.InstructorID,
		Date:             probe.Date,
		StartTime:        probe.StartTime,
		EndTime:          probe.EndTime,
		Statuses:         statusStrings(blockingStatuses),
		ExcludeBookingID: probe.ExcludeBookingID,
	})
}

func actorUserID(actor requesttrace.Actor) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}
