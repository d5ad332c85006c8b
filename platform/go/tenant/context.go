// Package tenant defines the tenant scope every scheduling operation runs
// under. A Scope is resolved once per request by the identity middleware and
// carried on the context; repositories refuse to operate without one, which is
// what keeps reads and writes from crossing tenant boundaries.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Scope identifies the tenant partition a request operates in.
type Scope struct {
	TenantID uuid.UUID
	Slug     string
}

type ctxKey string

const scopeKey ctxKey = "FLIGHTDECK_TENANT_SCOPE"

// ErrMissingScope is returned by repositories when an operation reaches the
// persistence layer without a resolved tenant scope.
var ErrMissingScope = errors.New("tenant scope missing from context")

// WithScope returns a derived context carrying the tenant Scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// FromContext extracts the tenant Scope and a boolean indicating presence.
func FromContext(ctx context.Context) (Scope, bool) {
	v := ctx.Value(scopeKey)
	if v == nil {
		return Scope{}, false
	}

	scope, ok := v.(Scope)
	return scope, ok
}

// Require extracts the tenant Scope or fails with ErrMissingScope.
func Require(ctx context.Context) (Scope, error) {
	scope, ok := FromContext(ctx)
	if !ok || scope.TenantID == uuid.Nil {
		return Scope{}, ErrMissingScope
	}
	return scope, nil
}
