package service

import (
	"context"
	"time"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// WeeklySchedule projects the seven days starting at weekStart into a map
// keyed by ISO date. The window is half-open: weekStart inclusive, weekStart
// plus seven days exclusive. Cancelled bookings are omitted; completed ones
// remain visible. Students and instructors see only their own bookings.
func (s *service) WeeklySchedule(ctx context.Context, actor requesttrace.Actor, weekStart string) (WeeklySchedule, error) {
	role, err := actorRole(actor)
	if err != nil {
		return WeeklySchedule{}, err
	}
	if !validDate(weekStart) {
		return WeeklySchedule{}, &ValidationError{Fields: FieldErrors{"weekStart": {"must be a calendar date in YYYY-MM-DD form"}}}
	}

	start, err := time.Parse(dateLayout, weekStart)
	if err != nil {
		return WeeklySchedule{}, &ValidationError{Fields: FieldErrors{"weekStart": {"must be a calendar date in YYYY-MM-DD form"}}}
	}
	weekEnd := start.AddDate(0, 0, 7).Format(dateLayout)

	params := persistence.ListBookingsInRangeParams{
		From:     weekStart,
		To:       weekEnd,
		Statuses: statusStrings(visibleStatuses),
	}
	switch role {
	case RoleStudent:
		id := actor.UserID
		params.StudentID = &id
	case RoleInstructor:
		id := actor.UserID
		params.InstructorID = &id
	case RoleAdmin:
		// whole tenant
	}

	records, err := s.repo.ListBookingsInRange(ctx, params)
	if err != nil {
		return WeeklySchedule{}, err
	}

	schedule := make(map[string][]Booking)
	for _, record := range records {
		booking := mapBooking(record)
		schedule[booking.Date] = append(schedule[booking.Date], booking)
	}

	return WeeklySchedule{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Schedule:  schedule,
	}, nil
}
