// Package repo provides the audit trail data access layer.
package repo

import (
	"context"
	"errors"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// Repository defines the persistence operations the audit service needs.
type Repository interface {
	Insert(ctx context.Context, params persistence.InsertAuditLogParams) error
	List(ctx context.Context, params persistence.ListAuditLogsParams) (persistence.ListAuditLogsResult, error)
}

type postgresRepository struct {
	store *persistence.AuditStore
}

// NewPostgresRepository wires the audit repository over the shared store.
func NewPostgresRepository(store *persistence.AuditStore) (Repository, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	return &postgresRepository{store: store}, nil
}

func (r *postgresRepository) Insert(ctx context.Context, params persistence.InsertAuditLogParams) error {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	return r.store.InsertAuditLog(ctx, scope, params)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListAuditLogsParams) (persistence.ListAuditLogsResult, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.ListAuditLogsResult{}, err
	}
	return r.store.ListAuditLogs(ctx, scope, params)
}
