// Package store persists officials and reputation ratings.
package store

import (
	"context"

	"civitas/internal/reputation/models"
	id "civitas/pkg/domain"
)

// OfficialStore persists officials and their derived aggregates.
type OfficialStore interface {
	Create(ctx context.Context, official *models.Official) error
	FindByID(ctx context.Context, officialID id.OfficialID) (*models.Official, error)
	// UpdateAggregates writes the recomputed weighted average and rating
	// count. Returns sentinel.ErrNotFound when the official is missing.
	UpdateAggregates(ctx context.Context, officialID id.OfficialID, avgReputation float64, totalRatings int) error
	// ApplyPenalty applies relative deltas to avgReputation and
	// transparencyScore. avgReputation is deliberately not clamped.
	ApplyPenalty(ctx context.Context, officialID id.OfficialID, avgReputationDelta, transparencyDelta float64) error
}

// RatingStore persists ratings keyed by (official, citizen, category).
type RatingStore interface {
	// Upsert inserts the rating or, when the unique key already exists,
	// replaces its score, weight, comment and update time in place keeping
	// the original id and creation time.
	Upsert(ctx context.Context, rating *models.ReputationRating) (*models.ReputationRating, error)
	// ListByOfficial returns every rating for the official, newest update
	// first.
	ListByOfficial(ctx context.Context, officialID id.OfficialID) ([]*models.ReputationRating, error)
}

// StoreTx is the transactional boundary for rating mutations.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
