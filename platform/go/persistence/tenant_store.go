package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tenant represents a row in the tenants table. A deactivated tenant keeps its
// history but is rejected by the identity middleware before any scheduling
// operation runs.
type Tenant struct {
	TenantID  uuid.UUID `db:"tenant_id" json:"tenantId"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ErrTenantConflict indicates a duplicated tenant slug.
var ErrTenantConflict = errors.New("tenant slug already exists")

// TenantStore exposes persistence helpers for the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore returns a store instance bound to the shared pool.
func NewTenantStore(pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

// CreateTenantParams captures the fields required to provision a tenant.
type CreateTenantParams struct {
	TenantID uuid.UUID
	Slug     string
	Name     string
}

// CreateTenant inserts a new active tenant and returns the persisted record.
func (s *TenantStore) CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error) {
	if params.TenantID == uuid.Nil {
		return Tenant{}, errors.New("tenant id is required")
	}

	row := s.pool.QueryRow(ctx, `
        INSERT INTO tenants (tenant_id, slug, name, is_active)
        VALUES ($1, $2, $3, TRUE)
        RETURNING tenant_id, slug, name, is_active, created_at
    `,
		params.TenantID,
		strings.TrimSpace(strings.ToLower(params.Slug)),
		strings.TrimSpace(params.Name),
	)

	t, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Tenant{}, ErrTenantConflict
		}
		return Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}

	return t, nil
}

// GetTenant returns a single tenant by identifier.
func (s *TenantStore) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT tenant_id, slug, name, is_active, created_at
        FROM tenants WHERE tenant_id = $1
    `, id)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}

	return t, nil
}

// FindTenantBySlug returns the tenant registered under the given slug.
func (s *TenantStore) FindTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT tenant_id, slug, name, is_active, created_at
        FROM tenants WHERE slug = $1
    `, strings.TrimSpace(strings.ToLower(slug)))

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}

	return t, nil
}

// SetTenantActive flips the active flag; deactivation blocks all further
// access without deleting history.
func (s *TenantStore) SetTenantActive(ctx context.Context, id uuid.UUID, active bool) (Tenant, error) {
	row := s.pool.QueryRow(ctx, `
        UPDATE tenants SET is_active = $1
        WHERE tenant_id = $2
        RETURNING tenant_id, slug, name, is_active, created_at
    `, active, id)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}

	return t, nil
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	if err := row.Scan(&t.TenantID, &t.Slug, &t.Name, &t.IsActive, &t.CreatedAt); err != nil {
		return Tenant{}, err
	}
	return t, nil
}
