// Package repo provides the scheduling data access layer. Implementations
// derive the tenant scope from the request context; a context without a scope
// is a programming error and fails loudly.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// Repository defines the persistence operations the scheduling service needs.
type Repository interface {
	CreateBooking(ctx context.Context, params persistence.CreateBookingParams) (persistence.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (persistence.Booking, error)
	ListBookings(ctx context.Context, params persistence.ListBookingsParams) (persistence.ListBookingsResult, error)
	ListBookingsInRange(ctx context.Context, params persistence.ListBookingsInRangeParams) ([]persistence.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string, assignedAt *time.Time) (persistence.Booking, error)
	HasOverlap(ctx context.Context, params persistence.OverlapParams) (bool, error)

	CreateAvailability(ctx context.Context, params persistence.CreateAvailabilityParams) (persistence.AvailabilitySlot, error)
	GetAvailability(ctx context.Context, id uuid.UUID) (persistence.AvailabilitySlot, error)
	ListAvailability(ctx context.Context, params persistence.ListAvailabilityParams) ([]persistence.AvailabilitySlot, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error

	ListInstructors(ctx context.Context) ([]persistence.UserSummary, error)
}

type postgresRepository struct {
	bookings     *persistence.BookingStore
	availability *persistence.AvailabilityStore
	users        *persistence.UserStore
}

// NewPostgresRepository wires the scheduling repository over the shared stores.
func NewPostgresRepository(bookings *persistence.BookingStore, availability *persistence.AvailabilityStore, users *persistence.UserStore) (Repository, error) {
	if bookings == nil || availability == nil || users == nil {
		return nil, errors.New("booking, availability and user stores are required")
	}
	return &postgresRepository{bookings: bookings, availability: availability, users: users}, nil
}

func (r *postgresRepository) CreateBooking(ctx context.Context, params persistence.CreateBookingParams) (persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}
	return r.bookings.CreateBooking(ctx, scope, params)
}

func (r *postgresRepository) GetBooking(ctx context.Context, id uuid.UUID) (persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}
	return r.bookings.GetBooking(ctx, scope, id)
}

func (r *postgresRepository) ListBookings(ctx context.Context, params persistence.ListBookingsParams) (persistence.ListBookingsResult, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.ListBookingsResult{}, err
	}
	return r.bookings.ListBookings(ctx, scope, params)
}

func (r *postgresRepository) ListBookingsInRange(ctx context.Context, params persistence.ListBookingsInRangeParams) ([]persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return r.bookings.ListBookingsInRange(ctx, scope, params)
}

func (r *postgresRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string, assignedAt *time.Time) (persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}
	return r.bookings.UpdateBookingStatus(ctx, scope, id, status, assignedAt)
}

func (r *postgresRepository) HasOverlap(ctx context.Context, params persistence.OverlapParams) (bool, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return false, err
	}
	return r.bookings.HasOverlap(ctx, scope, params)
}

func (r *postgresRepository) CreateAvailability(ctx context.Context, params persistence.CreateAvailabilityParams) (persistence.AvailabilitySlot, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.AvailabilitySlot{}, err
	}
	return r.availability.CreateAvailability(ctx, scope, params)
}

func (r *postgresRepository) GetAvailability(ctx context.Context, id uuid.UUID) (persistence.AvailabilitySlot, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.AvailabilitySlot{}, err
	}
	return r.availability.GetAvailability(ctx, scope, id)
}

func (r *postgresRepository) ListAvailability(ctx context.Context, params persistence.ListAvailabilityParams) ([]persistence.AvailabilitySlot, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return r.availability.ListAvailability(ctx, scope, params)
}

func (r *postgresRepository) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	return r.availability.DeleteAvailability(ctx, scope, id)
}

func (r *postgresRepository) ListInstructors(ctx context.Context) ([]persistence.UserSummary, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return r.users.ListUsersByRole(ctx, scope, "INSTRUCTOR")
}
