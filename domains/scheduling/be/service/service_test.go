package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/repo"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

type capturingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (c *capturingSink) Record(_ context.Context, event AuditEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturingSink) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	actions := make([]string, 0, len(c.events))
	for _, e := range c.events {
		actions = append(actions, e.Action)
	}
	return actions
}

type fixture struct {
	svc    *service
	repo   *repo.MemoryRepository
	sink   *capturingSink
	tenant uuid.UUID

	student    requesttrace.Actor
	instructor requesttrace.Actor
	admin      requesttrace.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	memRepo := repo.NewMemoryRepository()
	sink := &capturingSink{}
	svc, ok := New(memRepo, sink, zap.NewNop()).(*service)
	require.True(t, ok)

	f := &fixture{
		svc:    svc,
		repo:   memRepo,
		sink:   sink,
		tenant: uuid.New(),
	}

	studentID := uuid.New()
	instructorID := uuid.New()
	adminID := uuid.New()

	memRepo.AddUser(persistence.User{UserID: studentID, TenantID: f.tenant, Email: "sky.walker@aceflight.test", Name: "Sky Walker", Role: "STUDENT", IsApproved: true})
	memRepo.AddUser(persistence.User{UserID: instructorID, TenantID: f.tenant, Email: "amelia@aceflight.test", Name: "Amelia Hart", Role: "INSTRUCTOR", IsApproved: true})
	memRepo.AddUser(persistence.User{UserID: adminID, TenantID: f.tenant, Email: "ops@aceflight.test", Name: "Ops Desk", Role: "ADMIN", IsApproved: true})

	f.student = requesttrace.User(studentID, "STUDENT", "corr-student")
	f.instructor = requesttrace.User(instructorID, "INSTRUCTOR", "corr-instructor")
	f.admin = requesttrace.User(adminID, "ADMIN", "corr-admin")

	return f
}

func userFor(f *fixture, id uuid.UUID, role, name, email string) persistence.User {
	return persistence.User{UserID: id, TenantID: f.tenant, Email: email, Name: name, Role: role, IsApproved: true}
}

func (f *fixture) ctx() context.Context {
	return tenant.WithScope(context.Background(), tenant.Scope{TenantID: f.tenant, Slug: "aceflight"})
}

func (f *fixture) requestBooking(t *testing.T, date, start, end string) Booking {
	t.Helper()
	booking, err := f.svc.CreateBooking(f.ctx(), f.student, CreateBookingInput{
		InstructorID: f.instructor.UserID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
	})
	require.NoError(t, err)
	return booking
}
