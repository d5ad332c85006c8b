package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

type fakeResolver struct {
	tenants     map[uuid.UUID]persistence.Tenant
	users       map[uuid.UUID]persistence.User
	tenantCalls int
}

func (r *fakeResolver) ResolveTenant(_ context.Context, tenantID uuid.UUID) (persistence.Tenant, error) {
	r.tenantCalls++
	record, ok := r.tenants[tenantID]
	if !ok {
		return persistence.Tenant{}, persistence.ErrTenantNotFound
	}
	return record, nil
}

func (r *fakeResolver) ResolveUser(_ context.Context, scope tenant.Scope, userID uuid.UUID) (persistence.User, error) {
	record, ok := r.users[userID]
	if !ok || record.TenantID != scope.TenantID {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	return record, nil
}

func newIdentityFixture() (*fakeResolver, persistence.Tenant, persistence.User) {
	tenantRecord := persistence.Tenant{TenantID: uuid.New(), Slug: "aceflight", Name: "Ace Flight", IsActive: true}
	userRecord := persistence.User{UserID: uuid.New(), TenantID: tenantRecord.TenantID, Email: "ops@aceflight.test", Name: "Ops Desk", Role: "ADMIN", IsApproved: true}
	resolver := &fakeResolver{
		tenants: map[uuid.UUID]persistence.Tenant{tenantRecord.TenantID: tenantRecord},
		users:   map[uuid.UUID]persistence.User{userRecord.UserID: userRecord},
	}
	return resolver, tenantRecord, userRecord
}

func doRequest(handler http.Handler, tenantID, userID, correlationID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	if tenantID != "" {
		req.Header.Set(HeaderTenantID, tenantID)
	}
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if correlationID != "" {
		req.Header.Set(HeaderCorrelationID, correlationID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWithIdentityAttachesScopeAndActor(t *testing.T) {
	resolver, tenantRecord, userRecord := newIdentityFixture()

	var gotScope tenant.Scope
	var gotActor requesttrace.Actor
	handler := WithIdentity(resolver, Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotScope, _ = tenant.FromContext(r.Context())
		gotActor, _ = requesttrace.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := doRequest(handler, tenantRecord.TenantID.String(), userRecord.UserID.String(), "corr-42")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, tenantRecord.TenantID, gotScope.TenantID)
	require.Equal(t, "aceflight", gotScope.Slug)
	require.Equal(t, userRecord.UserID, gotActor.UserID)
	require.Equal(t, "ADMIN", gotActor.Role)
	require.Equal(t, "corr-42", gotActor.CorrelationID)
}

func TestWithIdentityRejectsMissingHeaders(t *testing.T) {
	resolver, tenantRecord, userRecord := newIdentityFixture()
	handler := WithIdentity(resolver, Config{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := doRequest(handler, "", userRecord.UserID.String(), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(handler, tenantRecord.TenantID.String(), "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(handler, "not-a-uuid", userRecord.UserID.String(), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithIdentityRejectsUnknownIdentity(t *testing.T) {
	resolver, tenantRecord, _ := newIdentityFixture()
	handler := WithIdentity(resolver, Config{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := doRequest(handler, uuid.NewString(), uuid.NewString(), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(handler, tenantRecord.TenantID.String(), uuid.NewString(), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithIdentityBlocksInactiveTenantAndPendingUser(t *testing.T) {
	resolver, tenantRecord, userRecord := newIdentityFixture()
	handler := WithIdentity(resolver, Config{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	pending := persistence.User{UserID: uuid.New(), TenantID: tenantRecord.TenantID, Email: "new@aceflight.test", Name: "New Pilot", Role: "STUDENT", IsApproved: false}
	resolver.users[pending.UserID] = pending

	rec := doRequest(handler, tenantRecord.TenantID.String(), pending.UserID.String(), "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	inactive := tenantRecord
	inactive.IsActive = false
	resolver.tenants[tenantRecord.TenantID] = inactive

	rec = doRequest(handler, tenantRecord.TenantID.String(), userRecord.UserID.String(), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithIdentityCachesTenantLookups(t *testing.T) {
	resolver, tenantRecord, userRecord := newIdentityFixture()
	handler := WithIdentity(resolver, Config{TenantCacheTTL: time.Minute})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 3 {
		rec := doRequest(handler, tenantRecord.TenantID.String(), userRecord.UserID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Equal(t, 1, resolver.tenantCalls)
}
