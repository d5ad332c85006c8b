package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

func TestListInstructorsCached(t *testing.T) {
	f := newFixture(t)

	current := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	f.svc.roster = newRosterCache(rosterCacheTTL, func() time.Time { return current })

	roster, err := f.svc.ListInstructors(f.ctx())
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, "Amelia Hart", roster[0].Name)

	// A new instructor is invisible until the cache entry expires.
	f.repo.AddUser(userFor(f, uuid.New(), "INSTRUCTOR", "Beck Ryder", "beck@aceflight.test"))

	roster, err = f.svc.ListInstructors(f.ctx())
	require.NoError(t, err)
	require.Len(t, roster, 1)

	current = current.Add(rosterCacheTTL + time.Second)

	roster, err = f.svc.ListInstructors(f.ctx())
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "Amelia Hart", roster[0].Name)
	require.Equal(t, "Beck Ryder", roster[1].Name)
}

func TestListInstructorsExcludesUnapprovedAndOtherRoles(t *testing.T) {
	f := newFixture(t)

	pending := userFor(f, uuid.New(), "INSTRUCTOR", "Pending Pilot", "pending@aceflight.test")
	pending.IsApproved = false
	f.repo.AddUser(pending)

	roster, err := f.svc.ListInstructors(f.ctx())
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, "Amelia Hart", roster[0].Name)
}

func TestListInstructorsCachePerTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListInstructors(f.ctx())
	require.NoError(t, err)

	// Another tenant's roster is cached separately and starts empty.
	otherCtx := tenant.WithScope(context.Background(), tenant.Scope{TenantID: uuid.New(), Slug: "rival"})
	roster, err := f.svc.ListInstructors(otherCtx)
	require.NoError(t, err)
	require.Empty(t, roster)
}
