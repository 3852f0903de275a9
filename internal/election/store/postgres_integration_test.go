//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	citizenModels "civitas/internal/citizen/models"
	citizenStore "civitas/internal/citizen/store"
	"civitas/internal/election/models"
	"civitas/internal/election/store"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	citizens *citizenStore.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.citizens = citizenStore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "votes", "election_candidates", "elections", "citizens")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) createElection() *models.Election {
	ctx := context.Background()
	now := time.Now().UTC()
	election, err := models.NewElection(id.ElectionID(uuid.New()), "City Council 2025", "", now.Add(-time.Hour), now.Add(time.Hour), now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateElection(ctx, election))
	return election
}

func (s *PostgresStoreSuite) addCandidate(electionID id.ElectionID, name string, position int) *models.Candidate {
	candidate := &models.Candidate{
		ID:         id.CandidateID(uuid.New()),
		ElectionID: electionID,
		Name:       name,
		Position:   position,
	}
	s.Require().NoError(s.store.AddCandidate(context.Background(), candidate))
	return candidate
}

func (s *PostgresStoreSuite) createCitizen(username string) *citizenModels.Citizen {
	citizen, err := citizenModels.NewCitizen(id.CitizenID(uuid.New()), username, username+"@example.org", "$2a$10$hash", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.citizens.Create(context.Background(), citizen))
	return citizen
}

func (s *PostgresStoreSuite) TestCandidateOrderAndTally() {
	ctx := context.Background()
	election := s.createElection()
	first := s.addCandidate(election.ID, "Ana Souza", 0)
	second := s.addCandidate(election.ID, "Bruno Lima", 1)

	s.Require().NoError(s.store.IncrementVoteCount(ctx, second.ID))
	s.Require().NoError(s.store.IncrementVoteCount(ctx, second.ID))

	candidates, err := s.store.ListCandidates(ctx, election.ID)
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	s.Equal(first.ID, candidates[0].ID)
	s.Equal(0, candidates[0].VoteCount)
	s.Equal(second.ID, candidates[1].ID)
	s.Equal(2, candidates[1].VoteCount)
}

func (s *PostgresStoreSuite) TestDuplicateVoteConflict() {
	ctx := context.Background()
	election := s.createElection()
	candidate := s.addCandidate(election.ID, "Ana Souza", 0)
	citizen := s.createCitizen("voter")

	vote := &models.Vote{
		ID:          id.VoteID(uuid.New()),
		ElectionID:  election.ID,
		CandidateID: candidate.ID,
		CitizenID:   citizen.ID,
		CreatedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateVote(ctx, vote))

	second := &models.Vote{
		ID:          id.VoteID(uuid.New()),
		ElectionID:  election.ID,
		CandidateID: candidate.ID,
		CitizenID:   citizen.ID,
		CreatedAt:   time.Now().UTC(),
	}
	s.ErrorIs(s.store.CreateVote(ctx, second), sentinel.ErrConflict)

	found, err := s.store.FindVote(ctx, election.ID, citizen.ID)
	s.Require().NoError(err)
	s.Equal(vote.ID, found.ID)
}

// TestConcurrentDuplicateVote verifies the vote ledger admits exactly one
// vote per citizen under concurrent submission.
func (s *PostgresStoreSuite) TestConcurrentDuplicateVote() {
	ctx := context.Background()
	election := s.createElection()
	candidate := s.addCandidate(election.ID, "Ana Souza", 0)
	citizen := s.createCitizen("voter")
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vote := &models.Vote{
				ID:          id.VoteID(uuid.New()),
				ElectionID:  election.ID,
				CandidateID: candidate.ID,
				CitizenID:   citizen.ID,
				CreatedAt:   time.Now().UTC(),
			}
			err := s.store.CreateVote(ctx, vote)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestDuplicateBallotPositionConflict() {
	election := s.createElection()
	s.addCandidate(election.ID, "Ana Souza", 0)

	candidate := &models.Candidate{
		ID:         id.CandidateID(uuid.New()),
		ElectionID: election.ID,
		Name:       "Bruno Lima",
		Position:   0,
	}
	s.ErrorIs(s.store.AddCandidate(context.Background(), candidate), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	ctx := context.Background()

	_, err := s.store.FindElection(ctx, id.ElectionID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindVote(ctx, id.ElectionID(uuid.New()), id.CitizenID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
