// Package outbox drains the follow-up jobs enqueued alongside application
// decisions: flipping the dog to adopted and notifying the adopter. Jobs are
// leased in batches and retried with exponential backoff on failure, so a
// decided application eventually converges even when a downstream dependency
// is flaky.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/notify"
	"github.com/pupperhq/pupper-server/internal/store"
)

// Config controls batch size and polling cadence.
type Config struct {
	BatchSize int           // number of jobs to lease per cycle
	Interval  time.Duration // poll interval
}

// Worker processes outbox jobs against the store and the notifier.
type Worker struct {
	store    store.Store
	notifier notify.Notifier
	metrics  *metrics.Collector
	log      zerolog.Logger
	cfg      Config
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(s store.Store, n notify.Notifier, m *metrics.Collector, cfg Config, log zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Worker{store: s, notifier: n, metrics: m, log: log, cfg: cfg}
}

// Run starts the polling loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.Interval).Msg("outbox worker starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("outbox worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessOnce(ctx); err != nil {
				// Log and continue; per-job backoff prevents hot-looping.
				w.log.Error().Err(err).Msg("outbox process cycle")
			}
		}
	}
}

// ProcessOnce leases one batch of due jobs and handles each. Exported so
// tests and the service's in-process mode can drive the worker directly.
func (w *Worker) ProcessOnce(ctx context.Context) error {
	jobs, err := w.store.Outbox().Lease(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, j := range jobs {
		if err := w.handle(ctx, j); err != nil {
			w.metrics.RecordOutboxFailed()
			w.log.Warn().Err(err).Int64("id", j.ID).Str("op", j.Op).Msg("outbox job failed")
			if e := w.store.Outbox().MarkFailed(ctx, j.ID, err.Error()); e != nil {
				w.log.Error().Err(e).Int64("id", j.ID).Msg("markFailed error")
			}
			continue
		}
		w.metrics.RecordOutboxProcessed()
		if e := w.store.Outbox().MarkDone(ctx, j.ID); e != nil {
			w.log.Error().Err(e).Int64("id", j.ID).Msg("markDone error")
		}
	}
	return nil
}

// handle executes one outbox operation. All targets are idempotent.
func (w *Worker) handle(ctx context.Context, j *model.OutboxJob) error {
	var p model.DecidePayload
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		// Poison pill: fail it so backoff keeps it from hot-looping.
		return fmt.Errorf("bad payload: %w", err)
	}

	switch j.Op {
	case model.OpMarkDogAdopted:
		err := w.store.Dogs().SetStatus(ctx, p.DogID, model.DogStatusAdopted)
		if errors.Is(err, model.ErrNotFound) {
			// Dog deleted since approval; nothing left to flip.
			w.log.Warn().Str("dog_id", p.DogID).Msg("dog gone before status flip")
			return nil
		}
		return err

	case model.OpNotifyAdopter:
		return w.notifyAdopter(ctx, p)

	default:
		return fmt.Errorf("unknown outbox op %q", j.Op)
	}
}

// notifyAdopter re-reads the application for fresh contact details, resolves
// the dog's display name best-effort, and dispatches the notification.
func (w *Worker) notifyAdopter(ctx context.Context, p model.DecidePayload) error {
	app, err := w.store.Applications().Get(ctx, p.ApplicationID)
	if err != nil {
		return err
	}

	dogName := "Unknown Dog"
	if dog, err := w.store.Dogs().Get(ctx, p.DogID); err == nil {
		if dog.Name != "" {
			dogName = dog.Name
		} else if dog.Shelter != "" {
			dogName = dog.Shelter
		}
	}

	err = w.notifier.Send(ctx, notify.StatusNotification{
		Email:         app.AdopterEmail,
		Phone:         app.AdopterPhone,
		ApplicantName: app.AdopterName,
		DogName:       dogName,
		Shelter:       app.Shelter,
		Status:        p.Status,
	})
	if err != nil {
		w.metrics.RecordNotificationFailed()
		return err
	}
	w.metrics.RecordNotificationSent()
	w.log.Info().
		Str("application_id", p.ApplicationID).
		Str("status", p.Status).
		Msg("adopter notified")
	return nil
}
