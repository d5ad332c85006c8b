package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

func TestAllowedTransitionMatrix(t *testing.T) {
	cases := []struct {
		role    Role
		next    Status
		allowed bool
	}{
		{RoleAdmin, StatusRequested, false},
		{RoleAdmin, StatusApproved, true},
		{RoleAdmin, StatusAssigned, true},
		{RoleAdmin, StatusCompleted, false},
		{RoleAdmin, StatusCancelled, true},

		{RoleInstructor, StatusRequested, false},
		{RoleInstructor, StatusApproved, false},
		{RoleInstructor, StatusAssigned, true},
		{RoleInstructor, StatusCompleted, true},
		{RoleInstructor, StatusCancelled, true},

		{RoleStudent, StatusRequested, false},
		{RoleStudent, StatusApproved, false},
		{RoleStudent, StatusAssigned, false},
		{RoleStudent, StatusCompleted, false},
		{RoleStudent, StatusCancelled, true},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, allowedTransition(tc.role, tc.next),
			"role %s setting %s", tc.role, tc.next)
	}
}

func TestUpdateBookingStatusByRole(t *testing.T) {
	f := newFixture(t)
	booking := f.requestBooking(t, "2026-06-01", "09:00", "10:00")

	updated, err := f.svc.UpdateBookingStatus(f.ctx(), f.admin, booking.ID, StatusApproved)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, updated.Status)
	require.Nil(t, updated.AssignedAt)

	updated, err = f.svc.UpdateBookingStatus(f.ctx(), f.instructor, booking.ID, StatusAssigned)
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, updated.Status)
	require.NotNil(t, updated.AssignedAt, "assigned_at must be stamped on ASSIGNED")

	updated, err = f.svc.UpdateBookingStatus(f.ctx(), f.instructor, booking.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, updated.Status)

	require.Equal(t, []string{
		ActionBookingCreated,
		ActionBookingApproved,
		ActionBookingAssigned,
		ActionBookingCompleted,
	}, f.sink.actions())
}

func TestUpdateBookingStatusRoleDenied(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		actor requesttrace.Actor
		next  Status
	}{
		{"student cannot approve", f.student, StatusApproved},
		{"student cannot assign", f.student, StatusAssigned},
		{"student cannot complete", f.student, StatusCompleted},
		{"instructor cannot approve", f.instructor, StatusApproved},
		{"admin cannot complete", f.admin, StatusCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := f.requestBooking(t, "2026-06-01", "09:00", "10:00")
			defer func() {
				_, err := f.svc.UpdateBookingStatus(f.ctx(), f.admin, booking.ID, StatusCancelled)
				require.NoError(t, err)
			}()

			_, err := f.svc.UpdateBookingStatus(f.ctx(), tc.actor, booking.ID, tc.next)
			require.ErrorIs(t, err, ErrForbidden)

			var forbiddenErr *ForbiddenError
			require.ErrorAs(t, err, &forbiddenErr)
			require.Contains(t, forbiddenErr.Reason, "role")

			current, err := f.svc.GetBooking(f.ctx(), booking.ID)
			require.NoError(t, err)
			require.Equal(t, StatusRequested, current.Status, "denied transition must not change state")
		})
	}
}

func TestUpdateBookingStatusOwnership(t *testing.T) {
	f := newFixture(t)
	booking := f.requestBooking(t, "2026-06-01", "09:00", "10:00")

	otherStudent := requesttrace.User(uuid.New(), "STUDENT", "corr-x")
	_, err := f.svc.UpdateBookingStatus(f.ctx(), otherStudent, booking.ID, StatusCancelled)
	require.ErrorIs(t, err, ErrForbidden)

	var forbiddenErr *ForbiddenError
	require.ErrorAs(t, err, &forbiddenErr)
	require.Contains(t, forbiddenErr.Reason, "own bookings")

	otherInstructor := requesttrace.User(uuid.New(), "INSTRUCTOR", "corr-y")
	_, err = f.svc.UpdateBookingStatus(f.ctx(), otherInstructor, booking.ID, StatusAssigned)
	require.ErrorIs(t, err, ErrForbidden)

	// Admins act tenant-wide.
	updated, err := f.svc.UpdateBookingStatus(f.ctx(), f.admin, booking.ID, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, updated.Status)
}

func TestUpdateBookingStatusTerminal(t *testing.T) {
	f := newFixture(t)
	booking := f.requestBooking(t, "2026-06-01", "09:00", "10:00")

	_, err := f.svc.UpdateBookingStatus(f.ctx(), f.student, booking.ID, StatusCancelled)
	require.NoError(t, err)

	_, err = f.svc.UpdateBookingStatus(f.ctx(), f.admin, booking.ID, StatusApproved)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateBookingStatus(f.ctx(), f.instructor, booking.ID, StatusAssigned)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateBookingStatusUnknownActorRole(t *testing.T) {
	f := newFixture(t)
	booking := f.requestBooking(t, "2026-06-01", "09:00", "10:00")

	ghost := requesttrace.User(uuid.New(), "DISPATCHER", "corr-z")
	_, err := f.svc.UpdateBookingStatus(f.ctx(), ghost, booking.ID, StatusCancelled)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "role")
}

func TestUpdateBookingStatusNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateBookingStatus(f.ctx(), f.admin, uuid.New(), StatusApproved)
	require.ErrorIs(t, err, ErrBookingNotFound)
}
