// Package store persists elections, candidates and the vote ledger.
package store

import (
	"context"

	"civitas/internal/election/models"
	id "civitas/pkg/domain"
)

// Store is the election persistence surface.
type Store interface {
	CreateElection(ctx context.Context, election *models.Election) error
	FindElection(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	ListElections(ctx context.Context) ([]*models.Election, error)

	AddCandidate(ctx context.Context, candidate *models.Candidate) error
	FindCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	// ListCandidates returns candidates in ballot (insertion) order.
	ListCandidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error)
	IncrementVoteCount(ctx context.Context, candidateID id.CandidateID) error

	// CreateVote returns sentinel.ErrConflict when the citizen already
	// voted in the election.
	CreateVote(ctx context.Context, vote *models.Vote) error
	FindVote(ctx context.Context, electionID id.ElectionID, citizenID id.CitizenID) (*models.Vote, error)
}

// StoreTx is the transactional boundary for vote mutations.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
