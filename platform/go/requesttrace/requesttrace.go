// Package requesttrace carries the request-scoped actor identity and
// correlation id that scheduling operations stamp into audit events.
package requesttrace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxActor contextKey = "FLIGHTDECK_REQUEST_ACTOR"

// CorrelationFallback is recorded on audit events when no correlation id was
// supplied by the caller.
const CorrelationFallback = "system"

// Kind represents who initiated a request.
type Kind string

const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
)

// Actor captures the already-resolved identity a request acts under.
// Role is the raw role string from the identity layer; domain services parse
// and validate it against their closed role set.
type Actor struct {
	Kind          Kind
	UserID        uuid.UUID
	Role          string
	CorrelationID string
}

// Correlation returns the actor's correlation id, falling back to the system
// sentinel when none was threaded through.
func (a Actor) Correlation() string {
	if a.CorrelationID == "" {
		return CorrelationFallback
	}
	return a.CorrelationID
}

// IntoContext stores the Actor on the provided context.
func IntoContext(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}

// FromContext extracts the Actor from context, returning false when absent.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	v := ctx.Value(ctxActor)
	if v == nil {
		return Actor{}, false
	}

	actor, ok := v.(Actor)
	return actor, ok
}

// User builds an Actor for an authenticated user request.
func User(userID uuid.UUID, role, correlationID string) Actor {
	return Actor{Kind: KindUser, UserID: userID, Role: role, CorrelationID: correlationID}
}

// System builds an Actor for background/system operations such as the
// escalation sweeper.
func System(correlationID string) Actor {
	return Actor{Kind: KindSystem, CorrelationID: correlationID}
}
