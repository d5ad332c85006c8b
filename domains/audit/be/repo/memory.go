package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// MemoryRepository is an in-memory Repository used by tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	logs map[uuid.UUID][]persistence.AuditLog
	now  func() time.Time
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		logs: make(map[uuid.UUID][]persistence.AuditLog),
		now:  time.Now,
	}
}

func (m *MemoryRepository) Insert(ctx context.Context, params persistence.InsertAuditLogParams) error {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[scope.TenantID] = append(m.logs[scope.TenantID], persistence.AuditLog{
		LogID:         params.LogID,
		TenantID:      scope.TenantID,
		UserID:        params.UserID,
		Action:        params.Action,
		Entity:        params.Entity,
		EntityID:      params.EntityID,
		Before:        params.Before,
		After:         params.After,
		CorrelationID: params.CorrelationID,
		CreatedAt:     m.now(),
	})
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, params persistence.ListAuditLogsParams) (persistence.ListAuditLogsResult, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.ListAuditLogsResult{}, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]persistence.AuditLog, 0)
	// newest first
	entries := m.logs[scope.TenantID]
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if params.UserID != nil && (entry.UserID == nil || *entry.UserID != *params.UserID) {
			continue
		}
		if params.Action != nil && *params.Action != "" && entry.Action != *params.Action {
			continue
		}
		matched = append(matched, entry)
	}

	result := persistence.ListAuditLogsResult{Logs: []persistence.AuditLog{}, TotalItems: len(matched)}
	offset := (params.Page - 1) * params.Limit
	if offset >= len(matched) {
		return result, nil
	}
	end := offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	result.Logs = append(result.Logs, matched[offset:end]...)
	return result, nil
}
