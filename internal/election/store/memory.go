package store

import (
	"context"
	"sort"
	"sync"

	"civitas/internal/election/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

type voteKey struct {
	electionID id.ElectionID
	citizenID  id.CitizenID
}

// Memory is an in-memory election store for tests and local development.
type Memory struct {
	mu         sync.RWMutex
	elections  map[id.ElectionID]*models.Election
	candidates map[id.CandidateID]*models.Candidate
	votes      map[voteKey]*models.Vote
	// electionOrder keeps listing deterministic.
	electionOrder []id.ElectionID
}

func NewMemory() *Memory {
	return &Memory{
		elections:  make(map[id.ElectionID]*models.Election),
		candidates: make(map[id.CandidateID]*models.Candidate),
		votes:      make(map[voteKey]*models.Vote),
	}
}

func (s *Memory) CreateElection(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.elections[election.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *election
	s.elections[election.ID] = &clone
	s.electionOrder = append(s.electionOrder, election.ID)
	return nil
}

func (s *Memory) FindElection(_ context.Context, electionID id.ElectionID) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	election, ok := s.elections[electionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *election
	return &clone, nil
}

func (s *Memory) ListElections(_ context.Context) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Election, 0, len(s.electionOrder))
	for _, electionID := range s.electionOrder {
		clone := *s.elections[electionID]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *Memory) AddCandidate(_ context.Context, candidate *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[candidate.ElectionID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := s.candidates[candidate.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.candidates {
		if existing.ElectionID == candidate.ElectionID && existing.Position == candidate.Position {
			return sentinel.ErrConflict
		}
	}
	clone := *candidate
	s.candidates[candidate.ID] = &clone
	return nil
}

func (s *Memory) FindCandidate(_ context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidate, ok := s.candidates[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *candidate
	return &clone, nil
}

func (s *Memory) ListCandidates(_ context.Context, electionID id.ElectionID) ([]*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Candidate
	for _, candidate := range s.candidates {
		if candidate.ElectionID != electionID {
			continue
		}
		clone := *candidate
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Memory) IncrementVoteCount(_ context.Context, candidateID id.CandidateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, ok := s.candidates[candidateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	candidate.VoteCount++
	return nil
}

func (s *Memory) CreateVote(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{vote.ElectionID, vote.CitizenID}
	if _, exists := s.votes[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *vote
	s.votes[key] = &clone
	return nil
}

func (s *Memory) FindVote(_ context.Context, electionID id.ElectionID, citizenID id.CitizenID) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[voteKey{electionID, citizenID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *vote
	return &clone, nil
}
