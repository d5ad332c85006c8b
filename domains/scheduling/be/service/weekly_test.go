package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

func TestWeeklySchedule(t *testing.T) {
	f := newFixture(t)

	monday := f.requestBooking(t, "2026-06-01", "09:00", "10:00")
	f.requestBooking(t, "2026-06-01", "14:00", "15:00")
	f.requestBooking(t, "2026-06-04", "09:00", "10:00")
	sunday := f.requestBooking(t, "2026-06-07", "09:00", "10:00")

	// Outside the half-open window [2026-06-01, 2026-06-08).
	f.requestBooking(t, "2026-05-31", "09:00", "10:00")
	f.requestBooking(t, "2026-06-08", "09:00", "10:00")

	// Cancelled bookings drop out of the view; completed ones stay.
	cancelled := f.requestBooking(t, "2026-06-03", "09:00", "10:00")
	_, err := f.svc.UpdateBookingStatus(f.ctx(), f.student, cancelled.ID, StatusCancelled)
	require.NoError(t, err)

	completed := f.requestBooking(t, "2026-06-02", "09:00", "10:00")
	_, err = f.svc.UpdateBookingStatus(f.ctx(), f.instructor, completed.ID, StatusAssigned)
	require.NoError(t, err)
	_, err = f.svc.UpdateBookingStatus(f.ctx(), f.instructor, completed.ID, StatusCompleted)
	require.NoError(t, err)

	week, err := f.svc.WeeklySchedule(f.ctx(), f.admin, "2026-06-01")
	require.NoError(t, err)
	require.Equal(t, "2026-06-01", week.WeekStart)
	require.Equal(t, "2026-06-08", week.WeekEnd)

	require.Len(t, week.Schedule, 4)
	require.Len(t, week.Schedule["2026-06-01"], 2)
	require.Len(t, week.Schedule["2026-06-02"], 1)
	require.Len(t, week.Schedule["2026-06-04"], 1)
	require.Len(t, week.Schedule["2026-06-07"], 1)
	require.NotContains(t, week.Schedule, "2026-06-03")
	require.NotContains(t, week.Schedule, "2026-05-31")
	require.NotContains(t, week.Schedule, "2026-06-08")

	// Within-day ordering follows start time.
	require.Equal(t, monday.ID, week.Schedule["2026-06-01"][0].ID)
	require.Equal(t, StatusCompleted, week.Schedule["2026-06-02"][0].Status)
	require.Equal(t, sunday.ID, week.Schedule["2026-06-07"][0].ID)
}

func TestWeeklyScheduleRoleScoping(t *testing.T) {
	f := newFixture(t)
	f.requestBooking(t, "2026-06-01", "09:00", "10:00")

	// The fixture student sees their booking; another student sees nothing.
	week, err := f.svc.WeeklySchedule(f.ctx(), f.student, "2026-06-01")
	require.NoError(t, err)
	require.Len(t, week.Schedule["2026-06-01"], 1)

	stranger := requesttrace.User(uuid.New(), "STUDENT", "corr-stranger")
	week, err = f.svc.WeeklySchedule(f.ctx(), stranger, "2026-06-01")
	require.NoError(t, err)
	require.Empty(t, week.Schedule)

	otherInstructor := requesttrace.User(uuid.New(), "INSTRUCTOR", "corr-other")
	week, err = f.svc.WeeklySchedule(f.ctx(), otherInstructor, "2026-06-01")
	require.NoError(t, err)
	require.Empty(t, week.Schedule)
}

func TestWeeklyScheduleValidation(t *testing.T) {
	f := newFixture(t)

	for _, weekStart := range []string{"", "2026-6-1", "June 1", "2026-06-32"} {
		_, err := f.svc.WeeklySchedule(f.ctx(), f.admin, weekStart)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation, "weekStart %q", weekStart)
		require.Contains(t, validation.Fields, "weekStart")
	}
}
