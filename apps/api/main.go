// Command api runs the scheduling HTTP server: it applies migrations, wires
// the stores, services and handlers, and starts the escalation sweeper.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/flightline-aero/flightdeck-scheduling/database"
	auditHandler "github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/handler"
	auditRepo "github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/repo"
	auditService "github.com/flightline-aero/flightdeck-scheduling/domains/audit/be/service"
	schedHandler "github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/handler"
	schedRepo "github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/repo"
	schedService "github.com/flightline-aero/flightdeck-scheduling/domains/scheduling/be/service"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/logging"
	platformmw "github.com/flightline-aero/flightdeck-scheduling/platform/go/middleware"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
	tenantmw "github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant/middleware"
)

type config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"60s"`

	SweepInterval       time.Duration `env:"ESCALATION_SWEEP_INTERVAL" envDefault:"5m"`
	EscalationThreshold time.Duration `env:"ESCALATION_THRESHOLD" envDefault:"2h"`
}

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{Component: "api-server", Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer persistence.ClosePool(pool)

	if err := persistence.Migrate(ctx, pool, database.Migrations); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied")

	tenantStore, err := persistence.NewTenantStore(pool)
	if err != nil {
		return err
	}
	userStore, err := persistence.NewUserStore(pool)
	if err != nil {
		return err
	}
	bookingStore, err := persistence.NewBookingStore(pool)
	if err != nil {
		return err
	}
	availabilityStore, err := persistence.NewAvailabilityStore(pool)
	if err != nil {
		return err
	}
	auditStore, err := persistence.NewAuditStore(pool)
	if err != nil {
		return err
	}

	auditRepository, err := auditRepo.NewPostgresRepository(auditStore)
	if err != nil {
		return err
	}
	auditSvc := auditService.New(auditRepository, logger.Named("audit"))

	schedRepository, err := schedRepo.NewPostgresRepository(bookingStore, availabilityStore, userStore)
	if err != nil {
		return err
	}
	schedSvc := schedService.New(schedRepository, auditSink{svc: auditSvc}, logger.Named("scheduling"))

	sweeper := schedService.NewSweeper(schedService.SweeperConfig{
		Bookings:  bookingStore,
		Admins:    userStore,
		Audit:     auditSink{svc: auditSvc},
		Notifier:  schedService.LogNotifier{Logger: logger.Named("notifier")},
		Logger:    logger.Named("escalation"),
		Interval:  cfg.SweepInterval,
		Threshold: cfg.EscalationThreshold,
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	router := buildRouter(cfg, logger, identityResolver{tenants: tenantStore, users: userStore}, schedSvc, auditSvc)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	return nil
}

func buildRouter(cfg config, logger *zap.Logger, resolver tenantmw.Resolver, schedSvc schedService.Service, auditSvc auditService.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(platformmw.DefaultCORS())
	r.Use(logging.RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tenantmw.WithIdentity(resolver, tenantmw.Config{TenantCacheTTL: cfg.TenantCacheTTL}))
		r.Mount("/", schedHandler.New(schedSvc).Routes())
		r.Mount("/audit-logs", auditHandler.New(auditSvc).Routes())
	})

	return r
}

// auditSink adapts the audit domain service to the scheduling audit interface.
type auditSink struct {
	svc auditService.Service
}

func (a auditSink) Record(ctx context.Context, event schedService.AuditEvent) {
	entityID := event.EntityID
	entry := auditService.Entry{
		Action:        event.Action,
		Entity:        event.Entity,
		UserID:        event.UserID,
		Before:        event.Before,
		After:         event.After,
		CorrelationID: event.CorrelationID,
	}
	if entityID != uuid.Nil {
		entry.EntityID = &entityID
	}
	a.svc.Record(ctx, entry)
}

// identityResolver backs the identity middleware with the shared stores.
type identityResolver struct {
	tenants *persistence.TenantStore
	users   *persistence.UserStore
}

func (r identityResolver) ResolveTenant(ctx context.Context, tenantID uuid.UUID) (persistence.Tenant, error) {
	return r.tenants.GetTenant(ctx, tenantID)
}

func (r identityResolver) ResolveUser(ctx context.Context, scope tenant.Scope, userID uuid.UUID) (persistence.User, error) {
	return r.users.GetUser(ctx, scope, userID)
}
