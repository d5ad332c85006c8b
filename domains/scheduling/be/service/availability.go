package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// SetAvailability publishes an open window for the acting instructor. Slots
// are advisory: they feed the booking UI but grant no exclusivity, and
// bookings are never validated against them.
func (s *service) SetAvailability(ctx context.Context, actor requesttrace.Actor, input SetAvailabilityInput) (Availability, error) {
	role, err := actorRole(actor)
	if err != nil {
		return Availability{}, err
	}
	if role != RoleInstructor {
		return Availability{}, forbidden("only instructors may publish availability")
	}

	fields := FieldErrors{}
	validateTimeslot(fields, input.Date, input.StartTime, input.EndTime)
	if len(fields) > 0 {
		return Availability{}, &ValidationError{Fields: fields}
	}

	record, err := s.repo.CreateAvailability(ctx, persistence.CreateAvailabilityParams{
		SlotID:       uuid.New(),
		InstructorID: actor.UserID,
		Date:         input.Date,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrAvailabilityConflict) {
			return Availability{}, ErrSlotExists
		}
		return Availability{}, err
	}

	return mapAvailability(record), nil
}

// ListAvailability returns the tenant's advertised slots with optional
// instructor and date filters.
func (s *service) ListAvailability(ctx context.Context, opts ListAvailabilityOptions) ([]Availability, error) {
	if opts.Date != nil && *opts.Date != "" && !validDate(*opts.Date) {
		return nil, &ValidationError{Fields: FieldErrors{"date": {"must be a calendar date in YYYY-MM-DD form"}}}
	}

	records, err := s.repo.ListAvailability(ctx, persistence.ListAvailabilityParams{
		InstructorID: opts.InstructorID,
		Date:         opts.Date,
	})
	if err != nil {
		return nil, err
	}

	slots := make([]Availability, 0, len(records))
	for _, record := range records {
		slots = append(slots, mapAvailability(record))
	}
	return slots, nil
}

// DeleteAvailability removes one of the acting instructor's own slots.
func (s *service) DeleteAvailability(ctx context.Context, actor requesttrace.Actor, slotID uuid.UUID) error {
	role, err := actorRole(actor)
	if err != nil {
		return err
	}
	if role != RoleInstructor {
		return forbidden("only instructors may remove availability")
	}

	record, err := s.repo.GetAvailability(ctx, slotID)
	if err != nil {
		if errors.Is(err, persistence.ErrAvailabilityNotFound) {
			return ErrSlotNotFound
		}
		return err
	}
	if record.InstructorID != actor.UserID {
		return forbidden("slot belongs to a different instructor")
	}

	if err := s.repo.DeleteAvailability(ctx, slotID); err != nil {
		if errors.Is(err, persistence.ErrAvailabilityNotFound) {
			return ErrSlotNotFound
		}
		return err
	}
	return nil
}
