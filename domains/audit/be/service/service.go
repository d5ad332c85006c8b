// Package service implements the append-only audit trail. Recording is
// fire-and-forget: a failed write is logged and swallowed so it never aborts
// the operation being audited.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/repo"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
)

// Entry is a single audit event to record.
type Entry struct {
	Action        string
	Entity        string
	EntityID      *uuid.UUID
	UserID        *uuid.UUID
	Before        map[string]any
	After         map[string]any
	CorrelationID string
}

// Log is the domain view of a recorded audit event.
type Log struct {
	ID            uuid.UUID      `json:"id"`
	UserID        *uuid.UUID     `json:"userId,omitempty"`
	Action        string         `json:"action"`
	Entity        string         `json:"entity"`
	EntityID      *uuid.UUID     `json:"entityId,omitempty"`
	Before        map[string]any `json:"before,omitempty"`
	After         map[string]any `json:"after,omitempty"`
	CorrelationID string         `json:"correlationId"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Pagination carries list metadata.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// LogPage wraps a page of audit logs with pagination metadata.
type LogPage struct {
	Logs       []Log      `json:"logs"`
	Pagination Pagination `json:"pagination"`
}

// ListOptions controls filtering and pagination for List.
type ListOptions struct {
	UserID *uuid.UUID
	Action *string
	Page   int
	Limit  int
}

// Service defines the audit trail operations.
type Service interface {
	// Record appends an audit event, swallowing failures.
	Record(ctx context.Context, entry Entry)
	// List returns the tenant's audit trail newest first.
	List(ctx context.Context, opts ListOptions) (LogPage, error)
}

type service struct {
	repo   repo.Repository
	logger *zap.Logger
}

// New constructs the audit Service.
func New(r repo.Repository, logger *zap.Logger) Service {
	if r == nil {
		panic("audit repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{repo: r, logger: logger}
}

func (s *service) Record(ctx context.Context, entry Entry) {
	correlationID := entry.CorrelationID
	if correlationID == "" {
		correlationID = requesttrace.CorrelationFallback
	}

	err := s.repo.Insert(ctx, persistence.InsertAuditLogParams{
		LogID:         uuid.New(),
		UserID:        entry.UserID,
		Action:        entry.Action,
		Entity:        entry.Entity,
		EntityID:      entry.EntityID,
		Before:        entry.Before,
		After:         entry.After,
		CorrelationID: correlationID,
	})
	if err != nil {
		s.logger.Error("audit record failed",
			zap.String("action", entry.Action),
			zap.String("entity", entry.Entity),
			zap.Error(err),
		)
	}
}

func (s *service) List(ctx context.Context, opts ListOptions) (LogPage, error) {
	result, err := s.repo.List(ctx, persistence.ListAuditLogsParams{
		UserID: opts.UserID,
		Action: opts.Action,
		Page:   opts.Page,
		Limit:  opts.Limit,
	})
	if err != nil {
		return LogPage{}, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	logs := make([]Log, 0, len(result.Logs))
	for _, record := range result.Logs {
		logs = append(logs, Log{
			ID:            record.LogID,
			UserID:        record.UserID,
			Action:        record.Action,
			Entity:        record.Entity,
			EntityID:      record.EntityID,
			Before:        record.Before,
			After:         record.After,
			CorrelationID: record.CorrelationID,
			CreatedAt:     record.CreatedAt,
		})
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + limit - 1) / limit
	}

	return LogPage{
		Logs: logs,
		Pagination: Pagination{
			Total:      result.TotalItems,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}
