package store

import (
	"context"
	"sort"
	"sync"

	"civitas/internal/reputation/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

type ratingKey struct {
	officialID id.OfficialID
	citizenID  id.CitizenID
	category   models.RatingCategory
}

// Memory is an in-memory reputation store for tests and local development.
// Atomicity across calls comes from the surrounding tx runner; the internal
// mutex only guards individual calls.
type Memory struct {
	mu        sync.RWMutex
	officials map[id.OfficialID]*models.Official
	ratings   map[ratingKey]*models.ReputationRating
	// order preserves insertion sequence so list output is deterministic.
	order []ratingKey
}

func NewMemory() *Memory {
	return &Memory{
		officials: make(map[id.OfficialID]*models.Official),
		ratings:   make(map[ratingKey]*models.ReputationRating),
	}
}

func (s *Memory) Create(_ context.Context, official *models.Official) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.officials[official.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *official
	s.officials[official.ID] = &clone
	return nil
}

func (s *Memory) FindByID(_ context.Context, officialID id.OfficialID) (*models.Official, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	official, ok := s.officials[officialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *official
	return &clone, nil
}

func (s *Memory) UpdateAggregates(_ context.Context, officialID id.OfficialID, avgReputation float64, totalRatings int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	official, ok := s.officials[officialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	official.AvgReputation = avgReputation
	official.TotalRatings = totalRatings
	return nil
}

func (s *Memory) ApplyPenalty(_ context.Context, officialID id.OfficialID, avgReputationDelta, transparencyDelta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	official, ok := s.officials[officialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	official.AvgReputation += avgReputationDelta
	official.TransparencyScore += transparencyDelta
	return nil
}

func (s *Memory) Upsert(_ context.Context, rating *models.ReputationRating) (*models.ReputationRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ratingKey{rating.OfficialID, rating.CitizenID, rating.Category}
	if existing, ok := s.ratings[key]; ok {
		existing.Score = rating.Score
		existing.Weight = rating.Weight
		existing.Comment = rating.Comment
		existing.Evidence = rating.Evidence
		existing.UpdatedAt = rating.UpdatedAt
		clone := *existing
		return &clone, nil
	}

	clone := *rating
	s.ratings[key] = &clone
	s.order = append(s.order, key)
	out := clone
	return &out, nil
}

func (s *Memory) ListByOfficial(_ context.Context, officialID id.OfficialID) ([]*models.ReputationRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ReputationRating
	for _, key := range s.order {
		if key.officialID != officialID {
			continue
		}
		clone := *s.ratings[key]
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
