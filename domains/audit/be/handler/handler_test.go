package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/repo"
	"github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/service"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

func TestListAuditLogsEndpoint(t *testing.T) {
	memRepo := repo.NewMemoryRepository()
	svc := service.New(memRepo, zap.NewNop())
	handler := New(svc).Routes()

	tenantID := uuid.New()
	adminID := uuid.New()
	scope := tenant.Scope{TenantID: tenantID, Slug: "aceflight"}

	seedCtx := tenant.WithScope(t.Context(), scope)
	svc.Record(seedCtx, service.Entry{Action: "BOOKING_CREATED", Entity: "booking"})
	svc.Record(seedCtx, service.Entry{Action: "BOOKING_APPROVED", Entity: "booking"})

	do := func(actor requesttrace.Actor, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		ctx := tenant.WithScope(req.Context(), scope)
		ctx = requesttrace.IntoContext(ctx, actor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	admin := requesttrace.User(adminID, "ADMIN", "corr-admin")
	rec := do(admin, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var page service.LogPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Equal(t, 2, page.Pagination.Total)
	require.Equal(t, "BOOKING_APPROVED", page.Logs[0].Action)

	rec = do(admin, "/?action=BOOKING_CREATED")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Equal(t, 1, page.Pagination.Total)

	// Non-admins never see the trail.
	student := requesttrace.User(uuid.New(), "STUDENT", "corr-student")
	rec = do(student, "/")
	require.Equal(t, http.StatusForbidden, rec.Code)
}
