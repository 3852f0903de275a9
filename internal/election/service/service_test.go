package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	citizenModels "civitas/internal/citizen/models"
	citizenStore "civitas/internal/citizen/store"
	"civitas/internal/election/models"
	"civitas/internal/election/store"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit/publisher"
	txctx "civitas/pkg/platform/tx"
	"civitas/pkg/requestcontext"
)

// fakeCache records invalidations; reads always miss so tests exercise the
// recompute path.
type fakeCache struct {
	invalidated []id.ElectionID
	sets        int
}

func (f *fakeCache) Get(context.Context, id.ElectionID) (*models.Results, bool, error) {
	return nil, false, nil
}

func (f *fakeCache) Set(context.Context, *models.Results) error {
	f.sets++
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, electionID id.ElectionID) error {
	f.invalidated = append(f.invalidated, electionID)
	return nil
}

type ElectionServiceSuite struct {
	suite.Suite
	svc      *Service
	store    *store.Memory
	citizens *citizenStore.Memory
	sink     *publisher.Memory
	cache    *fakeCache
	ctx      context.Context

	now      time.Time
	election *models.Election
	first    *models.Candidate
	second   *models.Candidate
	voter    *citizenModels.Citizen
}

func TestElectionServiceSuite(t *testing.T) {
	suite.Run(t, new(ElectionServiceSuite))
}

func (s *ElectionServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.citizens = citizenStore.NewMemory()
	s.sink = publisher.NewMemory()
	s.cache = &fakeCache{}

	svc, err := New(s.store, txctx.NewMemoryRunner(), s.citizens,
		WithAuditPublisher(s.sink),
		WithResultsCache(s.cache))
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.election = s.newElection(s.now.Add(-time.Hour), s.now.Add(time.Hour), true)
	s.first = s.addCandidate(s.election.ID, "Alice Prieto", "Civic Union", 0)
	s.second = s.addCandidate(s.election.ID, "Bruno Keller", "Reform Bloc", 1)
	s.voter = s.newCitizen("ana")
}

func (s *ElectionServiceSuite) newElection(start, end time.Time, active bool) *models.Election {
	election, err := models.NewElection(id.ElectionID(uuid.New()), "City Council", "", start, end, s.now)
	s.Require().NoError(err)
	election.IsActive = active
	s.Require().NoError(s.store.CreateElection(s.ctx, election))
	return election
}

func (s *ElectionServiceSuite) addCandidate(electionID id.ElectionID, name, party string, position int) *models.Candidate {
	candidate := &models.Candidate{
		ID:         id.CandidateID(uuid.New()),
		ElectionID: electionID,
		Name:       name,
		Party:      party,
		Position:   position,
	}
	s.Require().NoError(s.store.AddCandidate(s.ctx, candidate))
	return candidate
}

func (s *ElectionServiceSuite) newCitizen(username string) *citizenModels.Citizen {
	citizen, err := citizenModels.NewCitizen(id.CitizenID(uuid.New()), username, username+"@example.org", "$2a$10$hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.citizens.Create(s.ctx, citizen))
	return citizen
}

func (s *ElectionServiceSuite) TestCastVote() {
	s.Run("accepted vote updates tally, bonus, cache and audit", func() {
		vote, err := s.svc.CastVote(s.ctx, s.election.ID, s.voter.ID, s.first.ID)
		s.Require().NoError(err)
		s.Equal(s.first.ID, vote.CandidateID)

		candidate, err := s.store.FindCandidate(s.ctx, s.first.ID)
		s.Require().NoError(err)
		s.Equal(1, candidate.VoteCount)

		citizen, err := s.citizens.FindByID(s.ctx, s.voter.ID)
		s.Require().NoError(err)
		s.Equal(10, citizen.ReputationScore)

		s.Contains(s.cache.invalidated, s.election.ID)

		events := s.sink.Events()
		s.Require().Len(events, 1)
		s.Equal("vote_cast", events[0].Action)
	})

	s.Run("second vote for another candidate conflicts with tallies unchanged", func() {
		_, err := s.svc.CastVote(s.ctx, s.election.ID, s.voter.ID, s.second.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		first, err := s.store.FindCandidate(s.ctx, s.first.ID)
		s.Require().NoError(err)
		s.Equal(1, first.VoteCount)
		second, err := s.store.FindCandidate(s.ctx, s.second.ID)
		s.Require().NoError(err)
		s.Equal(0, second.VoteCount)

		citizen, err := s.citizens.FindByID(s.ctx, s.voter.ID)
		s.Require().NoError(err)
		s.Equal(10, citizen.ReputationScore)
	})
}

// staleElectionStore serves one caller a stale open snapshot of an election,
// simulating an election read that interleaved before a concurrent
// deactivation. Every later read hits the real store.
type staleElectionStore struct {
	store.Store
	stale *models.Election
}

func (s *staleElectionStore) FindElection(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	if s.stale != nil && s.stale.ID == electionID {
		open := s.stale
		s.stale = nil
		return open, nil
	}
	return s.Store.FindElection(ctx, electionID)
}

func (s *ElectionServiceSuite) TestVoteAfterConcurrentDeactivation() {
	closed := s.newElection(s.now.Add(-time.Hour), s.now.Add(time.Hour), false)
	candidate := s.addCandidate(closed.ID, "Carla Mendes", "Civic Union", 0)

	// A voter whose election read raced the deactivation sees a stale open
	// snapshot; the in-transaction re-read must reject the vote before any
	// write happens.
	stale := *closed
	stale.IsActive = true
	racer, err := New(&staleElectionStore{Store: s.store, stale: &stale}, txctx.NewMemoryRunner(), s.citizens)
	s.Require().NoError(err)

	_, err = racer.CastVote(s.ctx, closed.ID, s.voter.ID, candidate.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	// No vote, no tally, no bonus.
	_, err = s.svc.MyVote(s.ctx, closed.ID, s.voter.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	found, err := s.store.FindCandidate(s.ctx, candidate.ID)
	s.Require().NoError(err)
	s.Equal(0, found.VoteCount)

	voter, err := s.citizens.FindByID(s.ctx, s.voter.ID)
	s.Require().NoError(err)
	s.Equal(0, voter.ReputationScore)
}

func (s *ElectionServiceSuite) TestCastVoteRejections() {
	s.Run("unknown election is not found", func() {
		_, err := s.svc.CastVote(s.ctx, id.ElectionID(uuid.New()), s.voter.ID, s.first.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown candidate is not found", func() {
		_, err := s.svc.CastVote(s.ctx, s.election.ID, s.voter.ID, id.CandidateID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("candidate from another election is not found", func() {
		other := s.newElection(s.now.Add(-time.Hour), s.now.Add(time.Hour), true)
		stranger := s.addCandidate(other.ID, "Carol Diaz", "", 0)

		_, err := s.svc.CastVote(s.ctx, s.election.ID, s.voter.ID, stranger.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("inactive election is invalid state", func() {
		inactive := s.newElection(s.now.Add(-time.Hour), s.now.Add(time.Hour), false)
		candidate := s.addCandidate(inactive.ID, "Dan Ortiz", "", 0)

		_, err := s.svc.CastVote(s.ctx, inactive.ID, s.voter.ID, candidate.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("election outside its window is invalid state", func() {
		ended := s.newElection(s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), true)
		candidate := s.addCandidate(ended.ID, "Eva Marsh", "", 0)

		_, err := s.svc.CastVote(s.ctx, ended.ID, s.voter.ID, candidate.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		upcoming := s.newElection(s.now.Add(time.Hour), s.now.Add(3*time.Hour), true)
		candidate = s.addCandidate(upcoming.ID, "Finn Adler", "", 0)

		_, err = s.svc.CastVote(s.ctx, upcoming.ID, s.voter.ID, candidate.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ElectionServiceSuite) TestResults() {
	s.Run("no votes yields zero percentages", func() {
		results, err := s.svc.Results(s.ctx, s.election.ID)
		s.Require().NoError(err)
		s.Equal(0, results.TotalVotes)
		s.Require().Len(results.Candidates, 2)
		s.Equal(0.0, results.Candidates[0].Percentage)
		s.Equal(0.0, results.Candidates[1].Percentage)
	})

	s.Run("single vote splits 100/0", func() {
		_, err := s.svc.CastVote(s.ctx, s.election.ID, s.voter.ID, s.first.ID)
		s.Require().NoError(err)

		results, err := s.svc.Results(s.ctx, s.election.ID)
		s.Require().NoError(err)
		s.Equal(1, results.TotalVotes)
		s.Equal(s.first.ID, results.Candidates[0].Candidate.ID)
		s.Equal(100.0, results.Candidates[0].Percentage)
		s.Equal(0.0, results.Candidates[1].Percentage)
	})

	s.Run("ties keep ballot order", func() {
		other := s.newCitizen("bela")
		_, err := s.svc.CastVote(s.ctx, s.election.ID, other.ID, s.second.ID)
		s.Require().NoError(err)

		results, err := s.svc.Results(s.ctx, s.election.ID)
		s.Require().NoError(err)
		s.Equal(2, results.TotalVotes)
		// Both have one vote; ballot position decides.
		s.Equal(s.first.ID, results.Candidates[0].Candidate.ID)
		s.Equal(s.second.ID, results.Candidates[1].Candidate.ID)
		s.InDelta(50.0, results.Candidates[0].Percentage, 1e-9)
	})

	s.Run("unknown election is not found", func() {
		_, err := s.svc.Results(s.ctx, id.ElectionID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ElectionServiceSuite) TestListFilters() {
	finished := s.newElection(s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), true)
	upcoming := s.newElection(s.now.Add(time.Hour), s.now.Add(3*time.Hour), true)

	active, err := s.svc.List(s.ctx, models.FilterActive)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(s.election.ID, active[0].ID)

	past, err := s.svc.List(s.ctx, models.FilterFinished)
	s.Require().NoError(err)
	s.Require().Len(past, 1)
	s.Equal(finished.ID, past[0].ID)

	future, err := s.svc.List(s.ctx, models.FilterUpcoming)
	s.Require().NoError(err)
	s.Require().Len(future, 1)
	s.Equal(upcoming.ID, future[0].ID)

	all, err := s.svc.List(s.ctx, models.FilterAll)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *ElectionServiceSuite) TestMyVote() {
	s.Run("not found before voting", func() {
		_, err := s.svc.MyVote(s.ctx, s.election.ID, s.voter.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("returns the ledger entry after voting", func() {
		cast, err := s.svc.CastVote(s.ctx, s.election.ID, s.voter.ID, s.first.ID)
		s.Require().NoError(err)

		vote, err := s.svc.MyVote(s.ctx, s.election.ID, s.voter.ID)
		s.Require().NoError(err)
		s.Equal(cast.ID, vote.ID)
		s.Equal(s.first.ID, vote.CandidateID)
	})
}
