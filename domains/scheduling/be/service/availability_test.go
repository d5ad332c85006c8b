package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

func TestSetAvailability(t *testing.T) {
	f := newFixture(t)

	slot, err := f.svc.SetAvailability(f.ctx(), f.instructor, SetAvailabilityInput{
		Date:      "2026-06-01",
		StartTime: "08:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	require.Equal(t, f.instructor.UserID, slot.Instructor.ID)
	require.Equal(t, "2026-06-01", slot.Date)

	// Identical tuple is a conflict.
	_, err = f.svc.SetAvailability(f.ctx(), f.instructor, SetAvailabilityInput{
		Date:      "2026-06-01",
		StartTime: "08:00",
		EndTime:   "12:00",
	})
	require.ErrorIs(t, err, ErrSlotExists)

	// A different window on the same day is fine.
	_, err = f.svc.SetAvailability(f.ctx(), f.instructor, SetAvailabilityInput{
		Date:      "2026-06-01",
		StartTime: "13:00",
		EndTime:   "17:00",
	})
	require.NoError(t, err)
}

func TestSetAvailabilityRequiresInstructor(t *testing.T) {
	f := newFixture(t)

	input := SetAvailabilityInput{Date: "2026-06-01", StartTime: "08:00", EndTime: "12:00"}

	_, err := f.svc.SetAvailability(f.ctx(), f.student, input)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SetAvailability(f.ctx(), f.admin, input)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSetAvailabilityValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetAvailability(f.ctx(), f.instructor, SetAvailabilityInput{
		Date:      "2026-06-01",
		StartTime: "12:00",
		EndTime:   "08:00",
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "endTime")
}

func TestListAvailabilityFilters(t *testing.T) {
	f := newFixture(t)

	second := uuid.New()
	f.repo.AddUser(userFor(f, second, "INSTRUCTOR", "Beck Ryder", "beck@aceflight.test"))
	secondActor := requesttrace.User(second, "INSTRUCTOR", "corr-beck")

	mustSet := func(actor requesttrace.Actor, date, start, end string) {
		t.Helper()
		_, err := f.svc.SetAvailability(f.ctx(), actor, SetAvailabilityInput{Date: date, StartTime: start, EndTime: end})
		require.NoError(t, err)
	}
	mustSet(f.instructor, "2026-06-01", "08:00", "12:00")
	mustSet(f.instructor, "2026-06-02", "08:00", "12:00")
	mustSet(secondActor, "2026-06-01", "09:00", "11:00")

	all, err := f.svc.ListAvailability(f.ctx(), ListAvailabilityOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	date := "2026-06-01"
	byDate, err := f.svc.ListAvailability(f.ctx(), ListAvailabilityOptions{Date: &date})
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	require.Equal(t, "08:00", byDate[0].StartTime)

	id := f.instructor.UserID
	byInstructor, err := f.svc.ListAvailability(f.ctx(), ListAvailabilityOptions{InstructorID: &id})
	require.NoError(t, err)
	require.Len(t, byInstructor, 2)

	bad := "2026-6-1"
	_, err = f.svc.ListAvailability(f.ctx(), ListAvailabilityOptions{Date: &bad})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDeleteAvailability(t *testing.T) {
	f := newFixture(t)

	slot, err := f.svc.SetAvailability(f.ctx(), f.instructor, SetAvailabilityInput{
		Date:      "2026-06-01",
		StartTime: "08:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)

	// A different instructor cannot remove someone else's slot.
	other := requesttrace.User(uuid.New(), "INSTRUCTOR", "corr-other")
	err = f.svc.DeleteAvailability(f.ctx(), other, slot.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// Students cannot remove slots at all.
	err = f.svc.DeleteAvailability(f.ctx(), f.student, slot.ID)
	require.ErrorIs(t, err, ErrForbidden)

	err = f.svc.DeleteAvailability(f.ctx(), f.instructor, slot.ID)
	require.NoError(t, err)

	err = f.svc.DeleteAvailability(f.ctx(), f.instructor, slot.ID)
	require.ErrorIs(t, err, ErrSlotNotFound)
}
