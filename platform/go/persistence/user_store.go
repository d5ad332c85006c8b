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

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// User represents a row in the users table. Email is unique per tenant, not
// globally.
type User struct {
	UserID     uuid.UUID `db:"user_id" json:"userId"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenantId"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	Role       string    `db:"role" json:"role"`
	IsApproved bool      `db:"is_approved" json:"isApproved"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// UserSummary is the joined identity projection embedded in booking responses.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ErrUserConflict indicates a duplicated email within a tenant.
var ErrUserConflict = errors.New("user email already exists in tenant")

// UserStore exposes persistence helpers for the users table. Every read is
// scoped by the caller's tenant.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a store instance bound to the shared pool.
func NewUserStore(pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &UserStore{pool: pool}, nil
}

// CreateUserParams captures the fields required to insert a new user record.
type CreateUserParams struct {
	UserID     uuid.UUID
	Email      string
	Name       string
	Role       string
	IsApproved bool
}

// CreateUser inserts a new user under the given tenant scope.
func (s *UserStore) CreateUser(ctx context.Context, scope tenant.Scope, params CreateUserParams) (User, error) {
	if params.UserID == uuid.Nil {
		return User{}, errors.New("user id is required")
	}

	row := s.pool.QueryRow(ctx, `
        INSERT INTO users (user_id, tenant_id, email, name, role, is_approved)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING user_id, tenant_id, email, name, role, is_approved, created_at
    `,
		params.UserID,
		scope.TenantID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		strings.TrimSpace(params.Name),
		params.Role,
		params.IsApproved,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserConflict
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// GetUser returns a single user inside the tenant scope. A user belonging to
// another tenant is reported as not found.
func (s *UserStore) GetUser(ctx context.Context, scope tenant.Scope, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT user_id, tenant_id, email, name, role, is_approved, created_at
        FROM users WHERE user_id = $1 AND tenant_id = $2
    `, id, scope.TenantID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// ListUsersByRole returns the tenant's approved users holding the given role,
// ordered by name.
func (s *UserStore) ListUsersByRole(ctx context.Context, scope tenant.Scope, role string) ([]UserSummary, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT user_id, name, email
        FROM users
        WHERE tenant_id = $1 AND role = $2 AND is_approved
        ORDER BY name ASC
    `, scope.TenantID, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	summaries := make([]UserSummary, 0)
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		summaries = append(summaries, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return summaries, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.UserID, &user.TenantID, &user.Email, &user.Name, &user.Role, &user.IsApproved, &user.CreatedAt); err != nil {
		return User{}, err
	}
	return user, nil
}
