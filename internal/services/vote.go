package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
)

// VoteService owns the wag/growl preference records.
type VoteService struct {
	store   store.Store
	metrics *metrics.Collector
}

func NewVoteService(s store.Store, m *metrics.Collector) *VoteService {
	return &VoteService{store: s, metrics: m}
}

// Cast upserts the (userID, dogID) vote: a second vote for the same pair
// overwrites the first.
func (s *VoteService) Cast(ctx context.Context, userID, dogID, voteType string) (*model.Vote, error) {
	if voteType != model.VoteTypeWag && voteType != model.VoteTypeGrowl {
		return nil, fmt.Errorf(`%w: Vote type must be "wag" or "growl"`, model.ErrValidation)
	}
	v := &model.Vote{
		UserID:    userID,
		DogID:     dogID,
		VoteType:  voteType,
		Timestamp: time.Now().UTC(),
	}
	out, err := s.store.Votes().Upsert(ctx, v)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordVoteCast()
	return out, nil
}

// Remove deletes the vote. Removing an absent vote is a no-op.
func (s *VoteService) Remove(ctx context.Context, userID, dogID string) error {
	return s.store.Votes().Remove(ctx, userID, dogID)
}

// VotesForUser returns the user's votes as a dogId->voteType map, the shape
// the front end consumes.
func (s *VoteService) VotesForUser(ctx context.Context, userID string) (map[string]string, error) {
	votes, err := s.store.Votes().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(votes))
	for _, v := range votes {
		out[v.DogID] = v.VoteType
	}
	return out, nil
}
