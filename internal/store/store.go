package store

import (
	"context"

	"github.com/pupperhq/pupper-server/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, memory).
type Store interface {
	Dogs() Dogs
	Votes() Votes
	Applications() Applications
	Outbox() Outbox
}

type Dogs interface {
	// Create assigns a fresh DogID and persists the record with status
	// available.
	Create(ctx context.Context, d *model.Dog) (*model.Dog, error)
	Get(ctx context.Context, dogID string) (*model.Dog, error)
	// List returns dogs matching the filter. The state filter is served by
	// an index; color/weight/age apply as predicates after fetch.
	List(ctx context.Context, f model.DogFilter) ([]*model.Dog, error)
	Delete(ctx context.Context, dogID string) error
	// SetStatus updates status and updatedAt. Idempotent; returns
	// model.ErrNotFound when the dog no longer exists.
	SetStatus(ctx context.Context, dogID, status string) error
}

type Votes interface {
	// Upsert writes the (UserID, DogID) vote, overwriting any prior record.
	Upsert(ctx context.Context, v *model.Vote) (*model.Vote, error)
	// Remove deletes the vote if present. Absence is not an error.
	Remove(ctx context.Context, userID, dogID string) error
	ListByUser(ctx context.Context, userID string) ([]*model.Vote, error)
}

// DecideRequest carries a terminal status decision plus the follow-up jobs
// that must be enqueued atomically with it.
type DecideRequest struct {
	ApplicationID   string
	Status          string
	ExpectedVersion int64
	Jobs            []*model.OutboxJob
}

type Applications interface {
	Create(ctx context.Context, a *model.Application) (*model.Application, error)
	Get(ctx context.Context, applicationID string) (*model.Application, error)
	List(ctx context.Context) ([]*model.Application, error)
	// Decide conditionally moves a pending application to a terminal status
	// and enqueues req.Jobs in the same transaction. Returns
	// model.ErrNotFound when the application is absent and
	// model.ErrConflict when the version check fails or the application is
	// already decided.
	Decide(ctx context.Context, req DecideRequest) (*model.Application, error)
}

type Outbox interface {
	// Lease returns up to limit pending jobs whose next attempt is due and
	// reserves them so concurrent workers cannot lease the same jobs. A job
	// neither marked done nor failed becomes leasable again once its
	// reservation lapses.
	Lease(ctx context.Context, limit int) ([]*model.OutboxJob, error)
	MarkDone(ctx context.Context, id int64) error
	// MarkFailed records the failure reason, bumps the attempt count and
	// schedules the next attempt with exponential backoff.
	MarkFailed(ctx context.Context, id int64, reason string) error
}
