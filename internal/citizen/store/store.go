// Package store persists citizens. Stores are interface-driven to keep the
// domain logic testable and to allow swapping in-memory and Postgres
// persistence without rewiring business code.
package store

import (
	"context"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
)

type Store interface {
	// Create inserts a new citizen. Returns sentinel.ErrConflict when the
	// username or email is already taken.
	Create(ctx context.Context, citizen *models.Citizen) error

	// FindByID returns sentinel.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error)

	// FindByUsername returns sentinel.ErrNotFound for unknown usernames.
	FindByUsername(ctx context.Context, username string) (*models.Citizen, error)

	// IncrementReputation applies a relative delta to the citizen's
	// reputation score. Relative increments tolerate interleaving across
	// concurrent engine operations.
	IncrementReputation(ctx context.Context, citizenID id.CitizenID, delta int) error

	// SetVerificationLevel promotes or demotes a citizen's trust tier.
	SetVerificationLevel(ctx context.Context, citizenID id.CitizenID, level id.VerificationLevel) error
}
