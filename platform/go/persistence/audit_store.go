package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// AuditLog represents a row in the audit_logs table. Before and After hold
// the state snapshots surrounding a mutation, when the action has any.
type AuditLog struct {
	LogID         uuid.UUID      `json:"id"`
	TenantID      uuid.UUID      `json:"tenantId"`
	UserID        *uuid.UUID     `json:"userId,omitempty"`
	Action        string         `json:"action"`
	Entity        string         `json:"entity"`
	EntityID      *uuid.UUID     `json:"entityId,omitempty"`
	Before        map[string]any `json:"before,omitempty"`
	After         map[string]any `json:"after,omitempty"`
	CorrelationID string         `json:"correlationId"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// AuditStore exposes persistence helpers for the audit_logs table.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore returns a store instance bound to the shared pool.
func NewAuditStore(pool *pgxpool.Pool) (*AuditStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AuditStore{pool: pool}, nil
}

// InsertAuditLogParams captures a single audit event.
type InsertAuditLogParams struct {
	LogID         uuid.UUID
	UserID        *uuid.UUID
	Action        string
	Entity        string
	EntityID      *uuid.UUID
	Before        map[string]any
	After         map[string]any
	CorrelationID string
}

// InsertAuditLog appends an audit event under the tenant scope.
func (s *AuditStore) InsertAuditLog(ctx context.Context, scope tenant.Scope, params InsertAuditLogParams) error {
	if params.LogID == uuid.Nil {
		return errors.New("log id is required")
	}

	before, err := marshalSnapshot(params.Before)
	if err != nil {
		return fmt.Errorf("encode before snapshot: %w", err)
	}
	after, err := marshalSnapshot(params.After)
	if err != nil {
		return fmt.Errorf("encode after snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO audit_logs (log_id, tenant_id, user_id, action, entity, entity_id, before, after, correlation_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `,
		params.LogID,
		scope.TenantID,
		params.UserID,
		params.Action,
		params.Entity,
		params.EntityID,
		before,
		after,
		params.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

// ListAuditLogsParams captures filters and pagination for ListAuditLogs.
type ListAuditLogsParams struct {
	UserID *uuid.UUID
	Action *string
	Page   int
	Limit  int
}

// ListAuditLogsResult includes the rows and the total count.
type ListAuditLogsResult struct {
	Logs       []AuditLog
	TotalItems int
}

// ListAuditLogs returns the tenant's audit entries newest first.
func (s *AuditStore) ListAuditLogs(ctx context.Context, scope tenant.Scope, params ListAuditLogsParams) (ListAuditLogsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	whereParts := []string{"tenant_id = $1"}
	args := []any{scope.TenantID}

	if params.UserID != nil {
		args = append(args, *params.UserID)
		whereParts = append(whereParts, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if params.Action != nil && *params.Action != "" {
		args = append(args, *params.Action)
		whereParts = append(whereParts, fmt.Sprintf("action = $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("count audit logs: %w", err)
	}

	result := ListAuditLogsResult{Logs: []AuditLog{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	dataArgs := append([]any{}, args...)
	dataArgs = append(dataArgs, params.Limit, (params.Page-1)*params.Limit)

	query := fmt.Sprintf(`
        SELECT log_id, tenant_id, user_id, action, entity, entity_id, before, after, correlation_id, created_at
        FROM audit_logs
        WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d
    `, whereSQL, len(dataArgs)-1, len(dataArgs))

	rows, err := s.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry AuditLog
		var before, after []byte
		if err := rows.Scan(&entry.LogID, &entry.TenantID, &entry.UserID, &entry.Action, &entry.Entity, &entry.EntityID, &before, &after, &entry.CorrelationID, &entry.CreatedAt); err != nil {
			return ListAuditLogsResult{}, fmt.Errorf("scan audit log: %w", err)
		}
		if err := unmarshalSnapshot(before, &entry.Before); err != nil {
			return ListAuditLogsResult{}, fmt.Errorf("decode before snapshot: %w", err)
		}
		if err := unmarshalSnapshot(after, &entry.After); err != nil {
			return ListAuditLogsResult{}, fmt.Errorf("decode after snapshot: %w", err)
		}
		result.Logs = append(result.Logs, entry)
	}

	if err := rows.Err(); err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("iterate audit logs: %w", err)
	}

	return result, nil
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}

func unmarshalSnapshot(raw []byte, into *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}
