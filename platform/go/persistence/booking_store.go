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

// Booking represents a row in the bookings table with the joined student and
// instructor identity summaries. Date is a calendar date ("YYYY-MM-DD");
// StartTime/EndTime are fixed-width "HH:MM" strings whose lexicographic order
// matches chronological order, which the overlap predicate relies on.
type Booking struct {
	BookingID    uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenantId"`
	StudentID    uuid.UUID   `json:"studentId"`
	InstructorID uuid.UUID   `json:"instructorId"`
	Date         string      `json:"date"`
	StartTime    string      `json:"startTime"`
	EndTime      string      `json:"endTime"`
	Status       string      `json:"status"`
	Notes        *string     `json:"notes,omitempty"`
	AssignedAt   *time.Time  `json:"assignedAt,omitempty"`
	EscalatedAt  *time.Time  `json:"escalatedAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Student      UserSummary `json:"student"`
	Instructor   UserSummary `json:"instructor"`
}

const bookingColumns = `
        b.booking_id, b.tenant_id, b.student_id, b.instructor_id,
        to_char(b.date, 'YYYY-MM-DD'), b.start_time, b.end_time,
        b.status, b.notes, b.assigned_at, b.escalated_at, b.created_at, b.updated_at,
        s.user_id, s.name, s.email,
        i.user_id, i.name, i.email`

const bookingJoins = `
        FROM bookings b
        JOIN users s ON s.user_id = b.student_id AND s.tenant_id = b.tenant_id
        JOIN users i ON i.user_id = b.instructor_id AND i.tenant_id = b.tenant_id`

// BookingStore exposes persistence helpers for the bookings table. Every
// query is scoped by tenant; the insert path additionally serializes against
// concurrent writers for the same instructor and day.
type BookingStore struct {
	pool *pgxpool.Pool
}

// NewBookingStore returns a store instance bound to the shared pool.
func NewBookingStore(pool *pgxpool.Pool) (*BookingStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &BookingStore{pool: pool}, nil
}

// OverlapParams describes a candidate half-open [StartTime, EndTime) interval
// for an instructor on a date. Statuses is the non-terminal set that blocks
// scheduling; ExcludeBookingID removes one booking from consideration when
// revalidating an existing booking.
type OverlapParams struct {
	InstructorID     uuid.UUID
	Date             string
	StartTime        string
	EndTime          string
	Statuses         []string
	ExcludeBookingID *uuid.UUID
}

// HasOverlap reports whether any booking in the blocking status set overlaps
// the candidate interval. Back-to-back intervals do not overlap: the test is
// existing.start < candidate.end AND existing.end > candidate.start.
func (s *BookingStore) HasOverlap(ctx context.Context, scope tenant.Scope, params OverlapParams) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM bookings
            WHERE tenant_id = $1
              AND instructor_id = $2
              AND date = $3::date
              AND status = ANY($4)
              AND start_time < $5
              AND end_time > $6
              AND ($7::uuid IS NULL OR booking_id <> $7)
        )`

	var exclude any
	if params.ExcludeBookingID != nil {
		exclude = *params.ExcludeBookingID
	}

	var exists bool
	err := s.pool.QueryRow(ctx, query,
		scope.TenantID,
		params.InstructorID,
		params.Date,
		params.Statuses,
		params.EndTime,
		params.StartTime,
		exclude,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check booking overlap: %w", err)
	}

	return exists, nil
}

// CreateBookingParams captures the fields required to insert a new booking.
type CreateBookingParams struct {
	BookingID    uuid.UUID
	StudentID    uuid.UUID
	InstructorID uuid.UUID
	Date         string
	StartTime    string
	EndTime      string
	Status       string
	Notes        *string
	// BlockingStatuses is the non-terminal set the insert revalidates against.
	BlockingStatuses []string
}

// CreateBooking inserts a new booking after re-running the overlap check
// inside a single transaction. An advisory transaction lock keyed on
// (tenant, instructor, date) serializes concurrent creators for the same
// instructor-day, so the check-then-insert race the unlocked fast path leaves
// open cannot commit two overlapping rows.
func (s *BookingStore) CreateBooking(ctx context.Context, scope tenant.Scope, params CreateBookingParams) (Booking, error) {
	if params.BookingID == uuid.Nil {
		return Booking{}, errors.New("booking id is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Booking{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockKey := scope.TenantID.String() + "|" + params.InstructorID.String() + "|" + params.Date
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return Booking{}, fmt.Errorf("acquire instructor-day lock: %w", err)
	}

	var overlaps bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM bookings
            WHERE tenant_id = $1
              AND instructor_id = $2
              AND date = $3::date
              AND status = ANY($4)
              AND start_time < $5
              AND end_time > $6
        )`,
		scope.TenantID,
		params.InstructorID,
		params.Date,
		params.BlockingStatuses,
		params.EndTime,
		params.StartTime,
	).Scan(&overlaps)
	if err != nil {
		return Booking{}, fmt.Errorf("revalidate booking overlap: %w", err)
	}
	if overlaps {
		return Booking{}, ErrBookingOverlap
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
        INSERT INTO bookings (booking_id, tenant_id, student_id, instructor_id, date, start_time, end_time, status, notes)
        VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9)
        RETURNING booking_id
    `,
		params.BookingID,
		scope.TenantID,
		params.StudentID,
		params.InstructorID,
		params.Date,
		params.StartTime,
		params.EndTime,
		params.Status,
		params.Notes,
	).Scan(&id)
	if err != nil {
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Booking{}, fmt.Errorf("commit booking: %w", err)
	}

	return s.GetBooking(ctx, scope, id)
}

// GetBooking returns a single booking with joined identity summaries. A
// booking belonging to another tenant is reported as not found.
func (s *BookingStore) GetBooking(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Booking, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+bookingColumns+bookingJoins+`
        WHERE b.booking_id = $1 AND b.tenant_id = $2
    `, id, scope.TenantID)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, err
	}

	return booking, nil
}

// ListBookingsParams captures filters and pagination for ListBookings.
type ListBookingsParams struct {
	StudentID    *uuid.UUID
	InstructorID *uuid.UUID
	Status       *string
	Page         int
	Limit        int
}

// ListBookingsResult includes the rows and the total count for pagination metadata.
type ListBookingsResult struct {
	Bookings   []Booking
	TotalItems int
}

// ListBookings returns bookings matching the filters ordered by date then
// start time, with pagination applied.
func (s *BookingStore) ListBookings(ctx context.Context, scope tenant.Scope, params ListBookingsParams) (ListBookingsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	whereParts := []string{"b.tenant_id = $1"}
	args := []any{scope.TenantID}

	if params.StudentID != nil {
		args = append(args, *params.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("b.student_id = $%d", len(args)))
	}
	if params.InstructorID != nil {
		args = append(args, *params.InstructorID)
		whereParts = append(whereParts, fmt.Sprintf("b.instructor_id = $%d", len(args)))
	}
	if params.Status != nil && *params.Status != "" {
		args = append(args, *params.Status)
		whereParts = append(whereParts, fmt.Sprintf("b.status = $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM bookings b WHERE " + whereSQL
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListBookingsResult{}, fmt.Errorf("count bookings: %w", err)
	}

	result := ListBookingsResult{Bookings: []Booking{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	dataArgs := append([]any{}, args...)
	dataArgs = append(dataArgs, params.Limit, (params.Page-1)*params.Limit)

	query := fmt.Sprintf(`SELECT%s%s
        WHERE %s
        ORDER BY b.date ASC, b.start_time ASC
        LIMIT $%d OFFSET $%d
    `, bookingColumns, bookingJoins, whereSQL, len(dataArgs)-1, len(dataArgs))

	rows, err := s.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return ListBookingsResult{}, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		booking, scanErr := scanBooking(rows)
		if scanErr != nil {
			return ListBookingsResult{}, fmt.Errorf("scan booking: %w", scanErr)
		}
		result.Bookings = append(result.Bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return ListBookingsResult{}, fmt.Errorf("iterate bookings: %w", err)
	}

	return result, nil
}

// ListBookingsInRangeParams selects bookings with date in [From, To).
type ListBookingsInRangeParams struct {
	From         string
	To           string
	StudentID    *uuid.UUID
	InstructorID *uuid.UUID
	Statuses     []string
}

// ListBookingsInRange returns bookings inside the half-open date window,
// ordered by date then start time ascending.
func (s *BookingStore) ListBookingsInRange(ctx context.Context, scope tenant.Scope, params ListBookingsInRangeParams) ([]Booking, error) {
	whereParts := []string{
		"b.tenant_id = $1",
		"b.date >= $2::date",
		"b.date < $3::date",
		"b.status = ANY($4)",
	}
	args := []any{scope.TenantID, params.From, params.To, params.Statuses}

	if params.StudentID != nil {
		args = append(args, *params.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("b.student_id = $%d", len(args)))
	}
	if params.InstructorID != nil {
		args = append(args, *params.InstructorID)
		whereParts = append(whereParts, fmt.Sprintf("b.instructor_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT%s%s
        WHERE %s
        ORDER BY b.date ASC, b.start_time ASC
    `, bookingColumns, bookingJoins, strings.Join(whereParts, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings in range: %w", err)
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		booking, scanErr := scanBooking(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan booking: %w", scanErr)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// UpdateBookingStatus persists a new status, stamping assigned_at when
// provided, and returns the updated booking with joined summaries.
func (s *BookingStore) UpdateBookingStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID, status string, assignedAt *time.Time) (Booking, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE bookings
        SET status = $1, assigned_at = COALESCE($2, assigned_at), updated_at = NOW()
        WHERE booking_id = $3 AND tenant_id = $4
    `, status, assignedAt, id, scope.TenantID)
	if err != nil {
		return Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Booking{}, ErrBookingNotFound
	}

	return s.GetBooking(ctx, scope, id)
}

// ListEscalatable returns APPROVED bookings across all tenants that have not
// been escalated and were last updated before the cutoff. Consumed only by
// the escalation sweeper, which re-scopes each result by its tenant.
func (s *BookingStore) ListEscalatable(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+bookingColumns+bookingJoins+`
        WHERE b.status = 'APPROVED'
          AND b.escalated_at IS NULL
          AND b.updated_at < $1
        ORDER BY b.updated_at ASC
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list escalatable bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		booking, scanErr := scanBooking(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan booking: %w", scanErr)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// MarkEscalated stamps escalated_at on the booking.
func (s *BookingStore) MarkEscalated(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE bookings SET escalated_at = $1
        WHERE booking_id = $2 AND tenant_id = $3 AND escalated_at IS NULL
    `, at, id, scope.TenantID)
	if err != nil {
		return fmt.Errorf("mark booking escalated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.BookingID, &b.TenantID, &b.StudentID, &b.InstructorID,
		&b.Date, &b.StartTime, &b.EndTime,
		&b.Status, &b.Notes, &b.AssignedAt, &b.EscalatedAt, &b.CreatedAt, &b.UpdatedAt,
		&b.Student.ID, &b.Student.Name, &b.Student.Email,
		&b.Instructor.ID, &b.Instructor.Name, &b.Instructor.Email,
	)
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}
