package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidDate(t *testing.T) {
	require.True(t, validDate("2026-06-01"))
	require.True(t, validDate("2026-12-31"))

	require.False(t, validDate(""))
	require.False(t, validDate("2026-6-1"))
	require.False(t, validDate("2026-06-32"))
	require.False(t, validDate("01-06-2026"))
	require.False(t, validDate("2026-06-01T00:00:00Z"))
}

func TestValidClock(t *testing.T) {
	require.True(t, validClock("00:00"))
	require.True(t, validClock("09:30"))
	require.True(t, validClock("23:59"))

	require.False(t, validClock(""))
	require.False(t, validClock("9:30"))
	require.False(t, validClock("24:00"))
	require.False(t, validClock("09:60"))
	require.False(t, validClock("09:30:00"))
}

func TestStatusAndRoleParsing(t *testing.T) {
	for _, raw := range []string{"REQUESTED", "APPROVED", "ASSIGNED", "COMPLETED", "CANCELLED"} {
		status, ok := StatusFromString(raw)
		require.True(t, ok)
		require.Equal(t, raw, string(status))
	}
	_, ok := StatusFromString("requested")
	require.False(t, ok)
	_, ok = StatusFromString("PENDING")
	require.False(t, ok)

	for _, raw := range []string{"STUDENT", "INSTRUCTOR", "ADMIN"} {
		role, ok := RoleFromString(raw)
		require.True(t, ok)
		require.Equal(t, raw, string(role))
	}
	_, ok = RoleFromString("admin")
	require.False(t, ok)
}

func TestTerminalStatuses(t *testing.T) {
	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusRequested.Terminal())
	require.False(t, StatusApproved.Terminal())
	require.False(t, StatusAssigned.Terminal())
}
