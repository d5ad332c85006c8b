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

// AvailabilitySlot represents an instructor's advertised open window. Slots
// are advisory for the booking UI only; no exclusivity is enforced between
// availability and bookings.
type AvailabilitySlot struct {
	SlotID       uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenantId"`
	InstructorID uuid.UUID   `json:"instructorId"`
	Date         string      `json:"date"`
	StartTime    string      `json:"startTime"`
	EndTime      string      `json:"endTime"`
	CreatedAt    time.Time   `json:"createdAt"`
	Instructor   UserSummary `json:"instructor"`
}

// AvailabilityStore exposes persistence helpers for the availability table.
type AvailabilityStore struct {
	pool *pgxpool.Pool
}

// NewAvailabilityStore returns a store instance bound to the shared pool.
func NewAvailabilityStore(pool *pgxpool.Pool) (*AvailabilityStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AvailabilityStore{pool: pool}, nil
}

const availabilityColumns = `
        a.slot_id, a.tenant_id, a.instructor_id,
        to_char(a.date, 'YYYY-MM-DD'), a.start_time, a.end_time, a.created_at,
        i.user_id, i.name, i.email`

const availabilityJoins = `
        FROM availability a
        JOIN users i ON i.user_id = a.instructor_id AND i.tenant_id = a.tenant_id`

// CreateAvailabilityParams captures the fields for a new slot.
type CreateAvailabilityParams struct {
	SlotID       uuid.UUID
	InstructorID uuid.UUID
	Date         string
	StartTime    string
	EndTime      string
}

// CreateAvailability inserts a slot; an identical (instructor, date, start,
// end) tuple surfaces as ErrAvailabilityConflict via the unique constraint.
func (s *AvailabilityStore) CreateAvailability(ctx context.Context, scope tenant.Scope, params CreateAvailabilityParams) (AvailabilitySlot, error) {
	if params.SlotID == uuid.Nil {
		return AvailabilitySlot{}, errors.New("slot id is required")
	}

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
        INSERT INTO availability (slot_id, tenant_id, instructor_id, date, start_time, end_time)
        VALUES ($1, $2, $3, $4::date, $5, $6)
        RETURNING slot_id
    `,
		params.SlotID,
		scope.TenantID,
		params.InstructorID,
		params.Date,
		params.StartTime,
		params.EndTime,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return AvailabilitySlot{}, ErrAvailabilityConflict
		}
		return AvailabilitySlot{}, fmt.Errorf("insert availability: %w", err)
	}

	return s.GetAvailability(ctx, scope, id)
}

// GetAvailability returns a single slot inside the tenant scope.
func (s *AvailabilityStore) GetAvailability(ctx context.Context, scope tenant.Scope, id uuid.UUID) (AvailabilitySlot, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+availabilityColumns+availabilityJoins+`
        WHERE a.slot_id = $1 AND a.tenant_id = $2
    `, id, scope.TenantID)

	slot, err := scanAvailability(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AvailabilitySlot{}, ErrAvailabilityNotFound
		}
		return AvailabilitySlot{}, err
	}

	return slot, nil
}

// ListAvailabilityParams captures the optional filters for ListAvailability.
type ListAvailabilityParams struct {
	InstructorID *uuid.UUID
	Date         *string
}

// ListAvailability returns the tenant's slots matching the filters, ordered
// by date then start time.
func (s *AvailabilityStore) ListAvailability(ctx context.Context, scope tenant.Scope, params ListAvailabilityParams) ([]AvailabilitySlot, error) {
	whereParts := []string{"a.tenant_id = $1"}
	args := []any{scope.TenantID}

	if params.InstructorID != nil {
		args = append(args, *params.InstructorID)
		whereParts = append(whereParts, fmt.Sprintf("a.instructor_id = $%d", len(args)))
	}
	if params.Date != nil && *params.Date != "" {
		args = append(args, *params.Date)
		whereParts = append(whereParts, fmt.Sprintf("a.date = $%d::date", len(args)))
	}

	query := fmt.Sprintf(`SELECT%s%s
        WHERE %s
        ORDER BY a.date ASC, a.start_time ASC
    `, availabilityColumns, availabilityJoins, strings.Join(whereParts, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	slots := make([]AvailabilitySlot, 0)
	for rows.Next() {
		slot, scanErr := scanAvailability(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan availability: %w", scanErr)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}

	return slots, nil
}

// DeleteAvailability removes a slot inside the tenant scope.
func (s *AvailabilityStore) DeleteAvailability(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
        DELETE FROM availability WHERE slot_id = $1 AND tenant_id = $2
    `, id, scope.TenantID)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func scanAvailability(row pgx.Row) (AvailabilitySlot, error) {
	var slot AvailabilitySlot
	err := row.Scan(
		&slot.SlotID, &slot.TenantID, &slot.InstructorID,
		&slot.Date, &slot.StartTime, &slot.EndTime, &slot.CreatedAt,
		&slot.Instructor.ID, &slot.Instructor.Name, &slot.Instructor.Email,
	)
	if err != nil {
		return AvailabilitySlot{}, err
	}
	return slot, nil
}
