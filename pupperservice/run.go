// Package pupperservice is the composition root for the adoption service
// HTTP server.
package pupperservice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pupperhq/pupper-server/internal/api"
	"github.com/pupperhq/pupper-server/internal/config"
	"github.com/pupperhq/pupper-server/internal/health"
	"github.com/pupperhq/pupper-server/internal/logger"
	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/notify"
	"github.com/pupperhq/pupper-server/internal/outbox"
	"github.com/pupperhq/pupper-server/internal/services"
	"github.com/pupperhq/pupper-server/internal/store"
	"github.com/pupperhq/pupper-server/internal/store/memory"
	"github.com/pupperhq/pupper-server/internal/store/postgres"
)

// Run starts the adoption service HTTP server and blocks until shutdown or
// error.
func Run() error {
	log := logger.New("pupper-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("notifier", cfg.Notifier).
		Int("http_port", cfg.HTTPPort).
		Msg("Pupper service starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := NewStore(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store unavailable")
		return err
	}

	collector := metrics.NewCollector()

	dogSvc := services.NewDogService(st, collector)
	voteSvc := services.NewVoteService(st, collector)
	appSvc := services.NewApplicationService(st, collector, log, cfg.AllowPostAdoptionApplications)

	// The memory store is process-local, so the standalone worker binary can
	// never see its outbox. Drain it in-process instead.
	if cfg.StoreDriver == "memory" {
		var notifier notify.Notifier
		switch cfg.Notifier {
		case "webhook":
			notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyFromAddress)
		default:
			notifier = notify.NewLogNotifier(log)
		}
		w := outbox.NewWorker(st, notifier, collector, outbox.Config{
			BatchSize: cfg.OutboxBatchSize,
			Interval:  cfg.OutboxInterval,
		}, log)
		go func() { _ = w.Run(ctx) }()
	}

	svcHealth := startHealthCheckers(ctx, log, st)

	router := api.NewRouter(api.RouterDeps{
		Dogs:         dogSvc,
		Votes:        voteSvc,
		Applications: appSvc,
		Metrics:      collector,
		IsHealthy:    svcHealth.IsHealthy,
		CORSOrigin:   cfg.CORSAllowedOrigin,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// NewStore builds the configured store driver, applying migrations for
// Postgres when enabled.
func NewStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.RunMigrations {
			if err := postgres.RunMigrations(cfg.PostgresDSN); err != nil {
				return nil, err
			}
		}
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewWithDB(db), nil
	case "memory":
		log.Warn().Msg("memory store selected; data will not survive restarts")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// startHealthCheckers wires component checkers and the aggregate service
// checker, returning the aggregate.
func startHealthCheckers(ctx context.Context, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	var deps []health.HealthChecker
	if p, ok := st.(health.HealthPinger); ok {
		c := health.NewPingChecker("store", p, log, 2*time.Second)
		go c.Start(ctx, 30*time.Second)
		deps = append(deps, c)
	}

	svc := health.NewServiceHealthChecker(log, deps...)
	go svc.Start(ctx, 5*time.Second)
	return svc
}
