package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
)

// DogService owns dog listing use cases: create, list, delete.
type DogService struct {
	store   store.Store
	metrics *metrics.Collector
}

func NewDogService(s store.Store, m *metrics.Collector) *DogService {
	return &DogService{store: s, metrics: m}
}

// dogRequiredFields are validated in order so error messages are stable.
var dogRequiredFields = []struct {
	name  string
	value func(*model.Dog) string
}{
	{"shelter", func(d *model.Dog) string { return d.Shelter }},
	{"city", func(d *model.Dog) string { return d.City }},
	{"state", func(d *model.Dog) string { return d.State }},
	{"name", func(d *model.Dog) string { return d.Name }},
	{"species", func(d *model.Dog) string { return d.Species }},
	{"description", func(d *model.Dog) string { return d.Description }},
	{"birthday", func(d *model.Dog) string { return d.Birthday }},
	{"color", func(d *model.Dog) string { return d.Color }},
	{"createdBy", func(d *model.Dog) string { return d.CreatedBy }},
}

// CreateDog validates the listing and persists it with status available.
func (s *DogService) CreateDog(ctx context.Context, d *model.Dog) (*model.Dog, error) {
	for _, f := range dogRequiredFields {
		if strings.TrimSpace(f.value(d)) == "" {
			return nil, fmt.Errorf("%w: Missing required field: %s", model.ErrValidation, f.name)
		}
	}
	if d.Weight <= 0 {
		return nil, fmt.Errorf("%w: Missing required field: weight", model.ErrValidation)
	}
	if !strings.EqualFold(d.Species, model.AllowedSpecies) {
		return nil, fmt.Errorf("%w: Only Labrador Retrievers are allowed", model.ErrValidation)
	}

	out, err := s.store.Dogs().Create(ctx, d)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDogCreated()
	return out, nil
}

func (s *DogService) GetDog(ctx context.Context, dogID string) (*model.Dog, error) {
	return s.store.Dogs().Get(ctx, dogID)
}

func (s *DogService) ListDogs(ctx context.Context, f model.DogFilter) ([]*model.Dog, error) {
	return s.store.Dogs().List(ctx, f)
}

// DeleteDog removes a listing. Only the creating actor may delete it.
func (s *DogService) DeleteDog(ctx context.Context, dogID, actorID string) error {
	d, err := s.store.Dogs().Get(ctx, dogID)
	if err != nil {
		return err
	}
	if d.CreatedBy != actorID {
		return fmt.Errorf("%w: You can only delete dogs you posted", model.ErrForbidden)
	}
	return s.store.Dogs().Delete(ctx, dogID)
}
