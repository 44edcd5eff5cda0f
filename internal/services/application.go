package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
)

// unknownDogName is the display-name placeholder used when the referenced dog
// cannot be resolved for a read-side join.
const unknownDogName = "Unknown Dog"

// ApplicationService owns the adoption-application lifecycle: submission,
// read-side projections, and the pending->approved|rejected transition.
type ApplicationService struct {
	store   store.Store
	metrics *metrics.Collector
	log     zerolog.Logger

	// When false, submissions against an already-adopted dog are rejected.
	allowPostAdoption bool
}

func NewApplicationService(s store.Store, m *metrics.Collector, log zerolog.Logger, allowPostAdoption bool) *ApplicationService {
	return &ApplicationService{store: s, metrics: m, log: log, allowPostAdoption: allowPostAdoption}
}

var applicationRequiredFields = []struct {
	name  string
	value func(*model.Application) string
}{
	{"dogId", func(a *model.Application) string { return a.DogID }},
	{"shelter", func(a *model.Application) string { return a.Shelter }},
	{"name", func(a *model.Application) string { return a.AdopterName }},
	{"email", func(a *model.Application) string { return a.AdopterEmail }},
	{"phone", func(a *model.Application) string { return a.AdopterPhone }},
	{"address", func(a *model.Application) string { return a.AdopterAddress }},
	{"livingSpace", func(a *model.Application) string { return a.LivingSpace }},
}

// Submit validates required adopter fields and persists the application as
// pending. The adopter identity is an explicit parameter supplied by the
// authenticated calling layer; it is never inferred here.
//
// The dog reference is not verified by default: duplicate or late
// applications against an already-adopted dog are accepted and resolved by
// shelter review. The defensive guard only engages when configured.
func (s *ApplicationService) Submit(ctx context.Context, a *model.Application, adopterID string) (*model.Application, error) {
	for _, f := range applicationRequiredFields {
		if strings.TrimSpace(f.value(a)) == "" {
			return nil, fmt.Errorf("%w: Missing required field: %s", model.ErrValidation, f.name)
		}
	}

	if !s.allowPostAdoption {
		if dog, err := s.store.Dogs().Get(ctx, a.DogID); err == nil && dog.Status == model.DogStatusAdopted {
			return nil, fmt.Errorf("%w: dog %s has already been adopted", model.ErrValidation, a.DogID)
		}
	}

	a.AdopterID = adopterID
	out, err := s.store.Applications().Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordApplicationSubmitted()
	s.log.Info().
		Str("application_id", out.ApplicationID).
		Str("dog_id", out.DogID).
		Msg("adoption application submitted")
	return out, nil
}

// ListAll returns every application with the referenced dog's display name
// joined in. A missing dog never fails the listing; the name falls back to
// the application's shelter, then a placeholder.
func (s *ApplicationService) ListAll(ctx context.Context) ([]*model.ApplicationWithDog, error) {
	apps, err := s.store.Applications().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ApplicationWithDog, 0, len(apps))
	for _, a := range apps {
		joined := &model.ApplicationWithDog{Application: *a}
		joined.DogName, _ = s.dogDisplayName(ctx, a)
		out = append(out, joined)
	}
	return out, nil
}

// ListForShelterOwner returns applications for dogs created by ownerID.
// Applications do not store the dog owner, so this is a join against the
// dog registry.
func (s *ApplicationService) ListForShelterOwner(ctx context.Context, ownerID string) ([]*model.ApplicationWithDog, error) {
	apps, err := s.store.Applications().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ApplicationWithDog, 0)
	for _, a := range apps {
		name, dog := s.dogDisplayName(ctx, a)
		if dog == nil || dog.CreatedBy != ownerID {
			continue
		}
		joined := &model.ApplicationWithDog{Application: *a, DogName: name, DogCreatedBy: dog.CreatedBy}
		out = append(out, joined)
	}
	return out, nil
}

func (s *ApplicationService) dogDisplayName(ctx context.Context, a *model.Application) (string, *model.Dog) {
	dog, err := s.store.Dogs().Get(ctx, a.DogID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.log.Warn().Err(err).Str("dog_id", a.DogID).Msg("dog lookup failed for application join")
		}
		if a.Shelter != "" {
			return a.Shelter, nil
		}
		return unknownDogName, nil
	}
	if dog.Name != "" {
		return dog.Name, dog
	}
	return dog.Shelter, dog
}

// Transition moves a pending application to approved or rejected.
//
// The durable write of the application record is the success boundary: the
// status flip and its follow-up jobs (adopter notification; dog-status flip
// on approval) commit in one transaction, and the outbox worker retries the
// follow-ups until they land. Their later failures never surface here.
func (s *ApplicationService) Transition(ctx context.Context, applicationID, newStatus, actorID string) (*model.Application, error) {
	if newStatus != model.ApplicationStatusApproved && newStatus != model.ApplicationStatusRejected {
		return nil, fmt.Errorf(`%w: Status must be "approved" or "rejected"`, model.ErrValidation)
	}

	app, err := s.store.Applications().Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	// Only the actor who listed the dog may decide its applications. A dog
	// that has since been deleted cannot be ownership-checked and does not
	// block the decision.
	dog, err := s.store.Dogs().Get(ctx, app.DogID)
	if err == nil && dog.CreatedBy != actorID {
		return nil, fmt.Errorf("%w: only the dog's shelter may decide this application", model.ErrForbidden)
	}
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	payload, err := json.Marshal(model.DecidePayload{
		ApplicationID: app.ApplicationID,
		DogID:         app.DogID,
		Status:        newStatus,
	})
	if err != nil {
		return nil, err
	}

	jobs := []*model.OutboxJob{
		{Op: model.OpNotifyAdopter, AggregateID: app.ApplicationID, Payload: payload},
	}
	if newStatus == model.ApplicationStatusApproved {
		jobs = append(jobs, &model.OutboxJob{
			Op: model.OpMarkDogAdopted, AggregateID: app.DogID, Payload: payload,
		})
	}

	out, err := s.store.Applications().Decide(ctx, store.DecideRequest{
		ApplicationID:   applicationID,
		Status:          newStatus,
		ExpectedVersion: app.Version,
		Jobs:            jobs,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordApplicationDecided(newStatus)
	s.log.Info().
		Str("application_id", applicationID).
		Str("status", newStatus).
		Str("actor_id", actorID).
		Msg("application decided")
	return out, nil
}
