package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors surfaced by the stores. Domain services translate these into
// their own error vocabulary; a record outside the caller's tenant scope is
// reported as not found, indistinguishable from a missing id.
var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingOverlap       = errors.New("booking overlaps an existing booking")
	ErrAvailabilityNotFound = errors.New("availability slot not found")
	ErrAvailabilityConflict = errors.New("availability slot already exists")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
