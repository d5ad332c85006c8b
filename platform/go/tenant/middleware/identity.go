// Package middleware resolves the per-request tenant scope and acting
// identity. Credential verification happens upstream (gateway/JWT layer);
// this middleware trusts the resolved ids but still enforces the two
// lifecycle invariants the scheduling core depends on: a deactivated tenant
// blocks all access, and a non-approved user never reaches a scheduling
// operation.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/logging"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// Identity headers populated by the upstream gateway once credentials are
// verified.
const (
	HeaderTenantID      = "X-Tenant-ID"
	HeaderUserID        = "X-User-ID"
	HeaderUserRole      = "X-User-Role"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Resolver defines the lookups required to validate the resolved identity.
type Resolver interface {
	ResolveTenant(ctx context.Context, tenantID uuid.UUID) (persistence.Tenant, error)
	ResolveUser(ctx context.Context, scope tenant.Scope, userID uuid.UUID) (persistence.User, error)
}

// Config controls middleware behavior.
type Config struct {
	// TenantCacheTTL bounds how long a resolved tenant is reused before the
	// store is consulted again; zero disables caching.
	TenantCacheTTL time.Duration
}

// WithIdentity resolves the identity headers, validates the tenant and user,
// and attaches tenant.Scope and requesttrace.Actor to the request context.
func WithIdentity(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("identity middleware: resolver is required")
	}

	var cache *tenantCache
	if cfg.TenantCacheTTL > 0 {
		cache = newTenantCache(cfg.TenantCacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid, err := uuid.Parse(r.Header.Get(HeaderTenantID))
			if err != nil {
				http.Error(w, "tenant required", http.StatusUnauthorized)
				return
			}
			uid, err := uuid.Parse(r.Header.Get(HeaderUserID))
			if err != nil {
				http.Error(w, "user required", http.StatusUnauthorized)
				return
			}

			record, ok := cache.get(tid)
			if !ok {
				resolved, err := resolver.ResolveTenant(r.Context(), tid)
				if err != nil {
					http.Error(w, "tenant not found", http.StatusUnauthorized)
					return
				}
				record = resolved
				cache.put(record)
			}
			if !record.IsActive {
				http.Error(w, "tenant deactivated", http.StatusForbidden)
				return
			}

			scope := tenant.Scope{TenantID: record.TenantID, Slug: record.Slug}

			user, err := resolver.ResolveUser(r.Context(), scope, uid)
			if err != nil {
				http.Error(w, "user not found", http.StatusUnauthorized)
				return
			}
			if !user.IsApproved {
				http.Error(w, "account pending approval", http.StatusForbidden)
				return
			}

			correlationID := r.Header.Get(HeaderCorrelationID)
			if correlationID == "" {
				correlationID = chimw.GetReqID(r.Context())
			}

			actor := requesttrace.User(user.UserID, user.Role, correlationID)

			ctx := tenant.WithScope(r.Context(), scope)
			ctx = requesttrace.IntoContext(ctx, actor)

			if logger, ok := logging.FromContext(ctx); ok {
				logger = logger.With(
					zap.String("tenant_id", scope.TenantID.String()),
					zap.String("user_id", user.UserID.String()),
					zap.String("role", user.Role),
				)
				ctx = logging.WithLogger(ctx, logger)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantCache is a small TTL cache to avoid a tenant lookup per request.
type tenantCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[uuid.UUID]cacheItem
}

type cacheItem struct {
	record    persistence.Tenant
	expiresAt time.Time
}

func newTenantCache(ttl time.Duration) *tenantCache {
	return &tenantCache{ttl: ttl, items: make(map[uuid.UUID]cacheItem)}
}

func (c *tenantCache) get(id uuid.UUID) (persistence.Tenant, bool) {
	if c == nil {
		return persistence.Tenant{}, false
	}
	c.mu.RLock()
	item, ok := c.items[id]
	c.mu.RUnlock()
	if !ok || time.Now().After(item.expiresAt) {
		return persistence.Tenant{}, false
	}
	return item.record, true
}

func (c *tenantCache) put(record persistence.Tenant) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items[record.TenantID] = cacheItem{record: record, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
