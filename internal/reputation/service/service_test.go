package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	citizenModels "civitas/internal/citizen/models"
	citizenStore "civitas/internal/citizen/store"
	"civitas/internal/reputation/models"
	"civitas/internal/reputation/store"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit/publisher"
	txctx "civitas/pkg/platform/tx"
	"civitas/pkg/requestcontext"
)

type ReputationServiceSuite struct {
	suite.Suite
	svc       *Service
	officials *store.Memory
	citizens  *citizenStore.Memory
	sink      *publisher.Memory
	ctx       context.Context
}

func TestReputationServiceSuite(t *testing.T) {
	suite.Run(t, new(ReputationServiceSuite))
}

func (s *ReputationServiceSuite) SetupTest() {
	s.officials = store.NewMemory()
	s.citizens = citizenStore.NewMemory()
	s.sink = publisher.NewMemory()

	svc, err := New(s.officials, s.officials, s.citizens, txctx.NewMemoryRunner(),
		WithAuditPublisher(s.sink))
	s.Require().NoError(err)
	s.svc = svc

	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func (s *ReputationServiceSuite) newOfficial() *models.Official {
	official, err := models.NewOfficial(id.OfficialID(uuid.New()), "Maria Flores", "Mayor", models.LevelMunicipal, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.officials.Create(s.ctx, official))
	return official
}

func (s *ReputationServiceSuite) newCitizen(username string, score int, level id.VerificationLevel) *citizenModels.Citizen {
	citizen, err := citizenModels.NewCitizen(id.CitizenID(uuid.New()), username, username+"@example.org", "$2a$10$hash", time.Now().UTC())
	s.Require().NoError(err)
	citizen.ReputationScore = score
	citizen.VerificationLevel = level
	s.Require().NoError(s.citizens.Create(s.ctx, citizen))
	return citizen
}

func (s *ReputationServiceSuite) rate(official *models.Official, citizen *citizenModels.Citizen, category models.RatingCategory, score int) *models.ReputationRating {
	rating, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
		OfficialID: official.ID,
		CitizenID:  citizen.ID,
		Category:   category,
		Score:      score,
	})
	s.Require().NoError(err)
	return rating
}

func (s *ReputationServiceSuite) TestSubmitRatingValidation() {
	official := s.newOfficial()
	citizen := s.newCitizen("ana", 0, id.LevelBasic)

	s.Run("score outside 1..5 is invalid", func() {
		_, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
			OfficialID: official.ID, CitizenID: citizen.ID, Category: models.CategoryOverall, Score: 6,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown category is invalid", func() {
		_, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
			OfficialID: official.ID, CitizenID: citizen.ID, Category: "CHARISMA", Score: 3,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing official is not found", func() {
		_, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
			OfficialID: id.OfficialID(uuid.New()), CitizenID: citizen.ID, Category: models.CategoryOverall, Score: 3,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("inactive official is not found", func() {
		inactive, err := models.NewOfficial(id.OfficialID(uuid.New()), "Gone Person", "Senator", models.LevelFederal, time.Now().UTC())
		s.Require().NoError(err)
		inactive.IsActive = false
		s.Require().NoError(s.officials.Create(s.ctx, inactive))

		_, err = s.svc.SubmitRating(s.ctx, SubmitRatingInput{
			OfficialID: inactive.ID, CitizenID: citizen.ID, Category: models.CategoryOverall, Score: 3,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing citizen is not found", func() {
		_, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
			OfficialID: official.ID, CitizenID: id.CitizenID(uuid.New()), Category: models.CategoryOverall, Score: 3,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ReputationServiceSuite) TestZeroWeightRating() {
	official := s.newOfficial()
	basic := s.newCitizen("bela", 0, id.LevelBasic)

	rating := s.rate(official, basic, models.CategoryIntegrity, 4)
	s.Equal(0.0, rating.Weight)

	found, err := s.officials.FindByID(s.ctx, official.ID)
	s.Require().NoError(err)
	s.Equal(models.NeutralReputation, found.AvgReputation)
	s.Equal(1, found.TotalRatings)
}

func (s *ReputationServiceSuite) TestWeightedRecompute() {
	official := s.newOfficial()
	trusted := s.newCitizen("carla", 1000, id.LevelTrusted) // weight 1.0 * 1.5 = 1.5
	guardian := s.newCitizen("dora", 500, id.LevelGuardian) // weight 0.5 * 2.0 = 1.0

	s.rate(official, trusted, models.CategoryOverall, 4)
	s.rate(official, guardian, models.CategoryOverall, 2)

	found, err := s.officials.FindByID(s.ctx, official.ID)
	s.Require().NoError(err)
	// (4*1.5 + 2*1.0) / (1.5 + 1.0)
	s.InDelta(3.2, found.AvgReputation, 1e-9)
	s.Equal(2, found.TotalRatings)
}

func (s *ReputationServiceSuite) TestResubmissionUpdatesInPlace() {
	official := s.newOfficial()
	verified := s.newCitizen("emil", 2000, id.LevelVerified) // weight 2.0 * 1.2 = 2.4

	first := s.rate(official, verified, models.CategoryTransparency, 5)
	second := s.rate(official, verified, models.CategoryTransparency, 3)

	s.Equal(first.ID, second.ID)
	s.Equal(3, second.Score)
	s.InDelta(2.4, second.Weight, 1e-9)

	ratings, err := s.officials.ListByOfficial(s.ctx, official.ID)
	s.Require().NoError(err)
	s.Len(ratings, 1)

	found, err := s.officials.FindByID(s.ctx, official.ID)
	s.Require().NoError(err)
	s.InDelta(3.0, found.AvgReputation, 1e-9)
	s.Equal(1, found.TotalRatings)
}

func (s *ReputationServiceSuite) TestEvidencePersistsAndReplaces() {
	official := s.newOfficial()
	verified := s.newCitizen("gita", 1000, id.LevelVerified)

	first, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
		OfficialID: official.ID,
		CitizenID:  verified.ID,
		Category:   models.CategoryIntegrity,
		Score:      4,
		Comment:    "kept campaign promises",
		Evidence:   "https://transparency.example.gov/budget-2025",
	})
	s.Require().NoError(err)
	s.Equal("https://transparency.example.gov/budget-2025", first.Evidence)

	second, err := s.svc.SubmitRating(s.ctx, SubmitRatingInput{
		OfficialID: official.ID,
		CitizenID:  verified.ID,
		Category:   models.CategoryIntegrity,
		Score:      2,
		Evidence:   "https://news.example.org/audit",
	})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal("https://news.example.org/audit", second.Evidence)

	ratings, err := s.officials.ListByOfficial(s.ctx, official.ID)
	s.Require().NoError(err)
	s.Require().Len(ratings, 1)
	s.Equal("https://news.example.org/audit", ratings[0].Evidence)
}

func (s *ReputationServiceSuite) TestRatingBonus() {
	official := s.newOfficial()
	citizen := s.newCitizen("fern", 0, id.LevelBasic)

	s.rate(official, citizen, models.CategoryOverall, 4)
	s.rate(official, citizen, models.CategoryIntegrity, 4)

	found, err := s.citizens.FindByID(s.ctx, citizen.ID)
	s.Require().NoError(err)
	s.Equal(10, found.ReputationScore)

	events := s.sink.Events()
	s.Require().Len(events, 2)
	s.Equal("rating_submitted", events[0].Action)
	s.Equal(official.ID.String(), events[0].Subject)
}

func (s *ReputationServiceSuite) TestOfficialReputationView() {
	official := s.newOfficial()
	trusted := s.newCitizen("gina", 1000, id.LevelTrusted)
	guardian := s.newCitizen("hugo", 1000, id.LevelGuardian)

	s.rate(official, trusted, models.CategoryIntegrity, 4)
	s.rate(official, guardian, models.CategoryIntegrity, 2)
	s.rate(official, trusted, models.CategoryOverall, 5)

	view, err := s.svc.OfficialReputation(s.ctx, official.ID)
	s.Require().NoError(err)

	s.Len(view.RecentRatings, 3)
	s.Len(view.CategoryAverages, 2)
	// integrity: (4*1.5 + 2*2.0) / 3.5
	s.InDelta(10.0/3.5, view.CategoryAverages[models.CategoryIntegrity], 1e-9)
	s.InDelta(5.0, view.CategoryAverages[models.CategoryOverall], 1e-9)
	s.Equal(0, view.OpenReportCount)

	s.Run("unknown official is not found", func() {
		_, err := s.svc.OfficialReputation(s.ctx, id.OfficialID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
