package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/requesttrace"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// Sweeper defaults; both are overridable through SweeperConfig.
const (
	DefaultSweepInterval       = 5 * time.Minute
	DefaultEscalationThreshold = 2 * time.Hour
)

// EscalationStore is the slice of the booking store the sweeper needs.
type EscalationStore interface {
	ListEscalatable(ctx context.Context, cutoff time.Time) ([]persistence.Booking, error)
	MarkEscalated(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time) error
}

// AdminDirectory resolves the admins to notify for a tenant.
type AdminDirectory interface {
	ListUsersByRole(ctx context.Context, scope tenant.Scope, role string) ([]persistence.UserSummary, error)
}

// Notification is an outbound admin alert.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers notifications. LogNotifier is the default delivery until
// an email/SMS provider is wired in.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.Logger.Info("notification dispatched",
		zap.String("to", notification.To),
		zap.String("subject", notification.Subject),
	)
	return nil
}

// SweeperConfig wires the escalation sweeper.
type SweeperConfig struct {
	Bookings  EscalationStore
	Admins    AdminDirectory
	Audit     AuditSink
	Notifier  Notifier
	Logger    *zap.Logger
	Interval  time.Duration
	Threshold time.Duration
}

// Sweeper escalates APPROVED bookings that sat unassigned past the threshold:
// it stamps escalated_at, notifies the tenant's admins and records an audit
// event. Escalation changes no booking status. The escalated_at stamp is
// written with a null-guard, so a booking is escalated at most once even with
// concurrent sweepers.
type Sweeper struct {
	bookings  EscalationStore
	admins    AdminDirectory
	audit     AuditSink
	notifier  Notifier
	logger    *zap.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
}

// NewSweeper constructs the sweeper, applying defaults for zero intervals.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Bookings == nil {
		panic("escalation sweeper: booking store is required")
	}
	if cfg.Admins == nil {
		panic("escalation sweeper: admin directory is required")
	}
	if cfg.Audit == nil {
		panic("escalation sweeper: audit sink is required")
	}
	if cfg.Notifier == nil {
		panic("escalation sweeper: notifier is required")
	}
	if cfg.Logger == nil {
		panic("escalation sweeper: logger is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultEscalationThreshold
	}
	return &Sweeper{
		bookings:  cfg.Bookings,
		admins:    cfg.Admins,
		audit:     cfg.Audit,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop terminates the loop and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.threshold)

	stale, err := s.bookings.ListEscalatable(ctx, cutoff)
	if err != nil {
		s.logger.Error("list escalatable bookings failed", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	escalated := 0
	for _, record := range stale {
		if s.escalate(ctx, record) {
			escalated++
		}
	}

	s.logger.Info("escalation sweep finished",
		zap.Int("candidates", len(stale)),
		zap.Int("escalated", escalated),
	)
}

func (s *Sweeper) escalate(ctx context.Context, record persistence.Booking) bool {
	scope := tenant.Scope{TenantID: record.TenantID}
	at := s.now().UTC()

	if err := s.bookings.MarkEscalated(ctx, scope, record.BookingID, at); err != nil {
		// Not-found here means another sweeper won the stamp race.
		if !errors.Is(err, persistence.ErrBookingNotFound) {
			s.logger.Error("mark booking escalated failed",
				zap.String("booking_id", record.BookingID.String()),
				zap.Error(err),
			)
		}
		return false
	}

	admins, err := s.admins.ListUsersByRole(ctx, scope, string(RoleAdmin))
	if err != nil {
		s.logger.Error("list tenant admins failed",
			zap.String("tenant_id", record.TenantID.String()),
			zap.Error(err),
		)
		admins = nil
	}
	for _, admin := range admins {
		notification := Notification{
			To:      admin.Email,
			Subject: "Booking awaiting instructor assignment",
			Body: fmt.Sprintf("Booking %s (%s %s-%s, instructor %s) has been approved for over %s without assignment.",
				record.BookingID, record.Date, record.StartTime, record.EndTime, record.Instructor.Name, s.threshold),
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logger.Error("escalation notification failed",
				zap.String("to", admin.Email),
				zap.Error(err),
			)
		}
	}

	s.audit.Record(tenant.WithScope(ctx, scope), AuditEvent{
		Action:        ActionBookingEscalated,
		Entity:        "booking",
		EntityID:      record.BookingID,
		Before:        map[string]any{"escalatedAt": nil},
		After:         map[string]any{"escalatedAt": at, "status": record.Status},
		CorrelationID: requesttrace.CorrelationFallback,
	})

	return true
}
