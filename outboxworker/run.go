// Package outboxworker is the composition root for the follow-up task
// processor.
package outboxworker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pupperhq/pupper-server/internal/config"
	"github.com/pupperhq/pupper-server/internal/logger"
	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/notify"
	"github.com/pupperhq/pupper-server/internal/outbox"
	"github.com/pupperhq/pupper-server/internal/store"
	"github.com/pupperhq/pupper-server/internal/store/postgres"
)

// Run starts the outbox worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("outbox-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}

	// The worker shares durable state with the API server, so only the
	// Postgres driver makes sense here; a memory store would drain an outbox
	// no one ever fills.
	if cfg.StoreDriver != "postgres" {
		log.Error().Str("store_driver", cfg.StoreDriver).Msg("outbox worker requires the postgres store")
		return errors.New("outbox worker requires PUPPER_STORE_DRIVER=postgres")
	}

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres open")
		return err
	}
	var st store.Store = postgres.NewWithDB(db)

	var notifier notify.Notifier
	switch cfg.Notifier {
	case "webhook":
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyFromAddress)
	default:
		notifier = notify.NewLogNotifier(log)
	}

	w := outbox.NewWorker(st, notifier, metrics.NewCollector(), outbox.Config{
		BatchSize: cfg.OutboxBatchSize,
		Interval:  cfg.OutboxInterval,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("outbox worker exit")
		return err
	}
	return nil
}
