// Package memory provides an in-process store driver for development and
// tests. All operations copy records on the way in and out so callers never
// share mutable state with the store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
)

// New constructs an empty in-memory store.
func New() store.Store {
	return &memStore{
		dogs:    make(map[string]model.Dog),
		byState: make(map[string]map[string]struct{}),
		votes:   make(map[voteKey]model.Vote),
		apps:    make(map[string]model.Application),
	}
}

type voteKey struct{ userID, dogID string }

type memStore struct {
	mu sync.RWMutex

	dogs    map[string]model.Dog
	byState map[string]map[string]struct{} // state -> dogIDs, mirrors the SQL state index
	votes   map[voteKey]model.Vote
	apps    map[string]model.Application

	outbox []model.OutboxJob
	nextID int64
}

func (s *memStore) Dogs() store.Dogs                 { return (*dogs)(s) }
func (s *memStore) Votes() store.Votes               { return (*votes)(s) }
func (s *memStore) Applications() store.Applications { return (*applications)(s) }
func (s *memStore) Outbox() store.Outbox             { return (*outbox)(s) }

// HealthPing implements health.HealthPinger; the memory store is always up.
func (s *memStore) HealthPing(ctx context.Context) error { return nil }

// --- Dogs ---

type dogs memStore

func (d *dogs) Create(ctx context.Context, in *model.Dog) (*model.Dog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := *in
	if out.DogID == "" {
		out.DogID = uuid.New().String()
	}
	now := time.Now().UTC()
	out.Status = model.DogStatusAvailable
	out.CreatedAt = now
	out.UpdatedAt = now
	if out.EntryDate == "" {
		out.EntryDate = now.Format(time.RFC3339)
	}

	d.dogs[out.DogID] = out
	if d.byState[out.State] == nil {
		d.byState[out.State] = make(map[string]struct{})
	}
	d.byState[out.State][out.DogID] = struct{}{}
	return &out, nil
}

func (d *dogs) Get(ctx context.Context, dogID string) (*model.Dog, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dog, ok := d.dogs[dogID]
	if !ok {
		return nil, fmt.Errorf("%w: dog %s", model.ErrNotFound, dogID)
	}
	out := dog
	return &out, nil
}

func (d *dogs) List(ctx context.Context, f model.DogFilter) ([]*model.Dog, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var candidates []model.Dog
	if f.State != "" {
		for id := range d.byState[f.State] {
			candidates = append(candidates, d.dogs[id])
		}
	} else {
		for _, dog := range d.dogs {
			candidates = append(candidates, dog)
		}
	}

	now := time.Now().UTC()
	out := make([]*model.Dog, 0, len(candidates))
	for i := range candidates {
		dog := candidates[i]
		if f.Color != "" && !strings.EqualFold(dog.Color, f.Color) {
			continue
		}
		if f.MinWeight != nil && dog.Weight < *f.MinWeight {
			continue
		}
		if f.MaxWeight != nil && dog.Weight > *f.MaxWeight {
			continue
		}
		if f.MinAge != nil || f.MaxAge != nil {
			age := dog.Age(now)
			if f.MinAge != nil && age < *f.MinAge {
				continue
			}
			if f.MaxAge != nil && age > *f.MaxAge {
				continue
			}
		}
		cp := dog
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (d *dogs) Delete(ctx context.Context, dogID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dog, ok := d.dogs[dogID]
	if !ok {
		return fmt.Errorf("%w: dog %s", model.ErrNotFound, dogID)
	}
	delete(d.dogs, dogID)
	delete(d.byState[dog.State], dogID)
	return nil
}

func (d *dogs) SetStatus(ctx context.Context, dogID, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dog, ok := d.dogs[dogID]
	if !ok {
		return fmt.Errorf("%w: dog %s", model.ErrNotFound, dogID)
	}
	dog.Status = status
	dog.UpdatedAt = time.Now().UTC()
	d.dogs[dogID] = dog
	return nil
}

// --- Votes ---

type votes memStore

func (v *votes) Upsert(ctx context.Context, in *model.Vote) (*model.Vote, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := *in
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	v.votes[voteKey{out.UserID, out.DogID}] = out
	return &out, nil
}

func (v *votes) Remove(ctx context.Context, userID, dogID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.votes, voteKey{userID, dogID})
	return nil
}

func (v *votes) ListByUser(ctx context.Context, userID string) ([]*model.Vote, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []*model.Vote
	for k, vote := range v.votes {
		if k.userID == userID {
			cp := vote
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// --- Applications ---

type applications memStore

func (a *applications) Create(ctx context.Context, in *model.Application) (*model.Application, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := *in
	if out.ApplicationID == "" {
		out.ApplicationID = uuid.New().String()
	}
	now := time.Now().UTC()
	out.Status = model.ApplicationStatusPending
	out.Version = 1
	out.CreatedAt = now
	out.UpdatedAt = now
	a.apps[out.ApplicationID] = out
	return &out, nil
}

func (a *applications) Get(ctx context.Context, applicationID string) (*model.Application, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	app, ok := a.apps[applicationID]
	if !ok {
		return nil, fmt.Errorf("%w: application %s", model.ErrNotFound, applicationID)
	}
	out := app
	return &out, nil
}

func (a *applications) List(ctx context.Context) ([]*model.Application, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*model.Application, 0, len(a.apps))
	for _, app := range a.apps {
		cp := app
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (a *applications) Decide(ctx context.Context, req store.DecideRequest) (*model.Application, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	app, ok := a.apps[req.ApplicationID]
	if !ok {
		return nil, fmt.Errorf("%w: application %s", model.ErrNotFound, req.ApplicationID)
	}
	if app.Status != model.ApplicationStatusPending || app.Version != req.ExpectedVersion {
		return nil, fmt.Errorf("%w: application %s already decided or modified", model.ErrConflict, req.ApplicationID)
	}

	now := time.Now().UTC()
	app.Status = req.Status
	app.Version++
	app.UpdatedAt = now
	a.apps[req.ApplicationID] = app

	for _, j := range req.Jobs {
		a.nextID++
		a.outbox = append(a.outbox, model.OutboxJob{
			ID:            a.nextID,
			Op:            j.Op,
			AggregateID:   j.AggregateID,
			Payload:       append([]byte(nil), j.Payload...),
			Status:        model.OutboxStatusPending,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	out := app
	return &out, nil
}

// --- Outbox ---

type outbox memStore

// leaseDuration mirrors the postgres driver: a leased job stays invisible to
// other workers until it is finalized or the reservation lapses.
const leaseDuration = 30 * time.Second

func (o *outbox) Lease(ctx context.Context, limit int) ([]*model.OutboxJob, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now().UTC()
	var out []*model.OutboxJob
	for i := range o.outbox {
		if len(out) >= limit {
			break
		}
		j := &o.outbox[i]
		if j.Status != model.OutboxStatusPending || j.NextAttemptAt.After(now) {
			continue
		}
		j.NextAttemptAt = now.Add(leaseDuration)
		j.UpdatedAt = now
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (o *outbox) MarkDone(ctx context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.outbox {
		if o.outbox[i].ID == id {
			o.outbox[i].Status = model.OutboxStatusDone
			o.outbox[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: outbox job %d", model.ErrNotFound, id)
}

func (o *outbox) MarkFailed(ctx context.Context, id int64, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.outbox {
		if o.outbox[i].ID == id {
			j := &o.outbox[i]
			j.AttemptCount++
			msg := reason
			j.LastError = &msg
			delay := math.Min(math.Pow(2, float64(j.AttemptCount+1)), 300)
			j.NextAttemptAt = time.Now().UTC().Add(time.Duration(delay) * time.Second)
			j.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: outbox job %d", model.ErrNotFound, id)
}
