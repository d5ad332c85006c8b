package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// rosterCacheTTL bounds instructor-roster staleness; the roster changes
// rarely but is read on every booking form load.
const rosterCacheTTL = 120 * time.Second

// ListInstructors returns the tenant's approved instructors, served from a
// short-lived per-tenant cache.
func (s *service) ListInstructors(ctx context.Context) ([]Party, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.roster.get(scope.TenantID); ok {
		return cached, nil
	}

	records, err := s.repo.ListInstructors(ctx)
	if err != nil {
		return nil, err
	}

	instructors := make([]Party, 0, len(records))
	for _, record := range records {
		instructors = append(instructors, Party(record))
	}

	s.roster.put(scope.TenantID, instructors)
	return instructors, nil
}

// rosterCache is a per-tenant TTL cache for instructor rosters.
type rosterCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]rosterEntry
}

type rosterEntry struct {
	parties   []Party
	expiresAt time.Time
}

func newRosterCache(ttl time.Duration, now func() time.Time) *rosterCache {
	return &rosterCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[uuid.UUID]rosterEntry),
	}
}

func (c *rosterCache) get(tenantID uuid.UUID) ([]Party, bool) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.parties, true
}

func (c *rosterCache) put(tenantID uuid.UUID, parties []Party) {
	c.mu.Lock()
	c.entries[tenantID] = rosterEntry{parties: parties, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
