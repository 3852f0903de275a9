//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	citizenModels "civitas/internal/citizen/models"
	citizenStore "civitas/internal/citizen/store"
	"civitas/internal/report/models"
	"civitas/internal/report/store"
	reputationModels "civitas/internal/reputation/models"
	reputationStore "civitas/internal/reputation/store"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.Postgres
	citizens  *citizenStore.Postgres
	officials *reputationStore.Postgres

	official *reputationModels.Official
	reporter *citizenModels.Citizen
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
	s.officials = reputationStore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "report_verifications", "corruption_reports", "officials", "citizens")
	s.Require().NoError(err)

	now := time.Now().UTC()
	official, err := reputationModels.NewOfficial(id.OfficialID(uuid.New()), "Maria Flores", "Mayor", reputationModels.LevelMunicipal, now)
	s.Require().NoError(err)
	s.Require().NoError(s.officials.Create(ctx, official))
	s.official = official

	reporter, err := citizenModels.NewCitizen(id.CitizenID(uuid.New()), "reporter", "reporter@example.org", "$2a$10$hash", now)
	s.Require().NoError(err)
	s.Require().NoError(s.citizens.Create(ctx, reporter))
	s.reporter = reporter
}

func (s *PostgresStoreSuite) newReport(severity models.Severity) *models.CorruptionReport {
	now := time.Now().UTC().Truncate(time.Microsecond)
	amount := 125000.50
	incident := now.Add(-30 * 24 * time.Hour)
	return &models.CorruptionReport{
		ID:                    id.ReportID(uuid.New()),
		OfficialID:            s.official.ID,
		ReporterID:            s.reporter.ID,
		Title:                 "Missing budget funds",
		Description:           "Funds allocated for road repair are unaccounted for.",
		Category:              models.CategoryEmbezzlement,
		Severity:              severity,
		EvidenceFiles:         []string{"s3://evidence/ledger.pdf", "s3://evidence/photo.jpg"},
		Location:              "City Hall",
		EstimatedAmount:       &amount,
		DateOfIncident:        &incident,
		Status:                models.StatusPending,
		RequiredVerifications: severity.RequiredVerifications(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	report := s.newReport(models.SeverityCritical)
	s.Require().NoError(s.store.CreateReport(ctx, report))

	found, err := s.store.FindReport(ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(report.Title, found.Title)
	s.Equal(report.EvidenceFiles, found.EvidenceFiles)
	s.Equal("City Hall", found.Location)
	s.Require().NotNil(found.EstimatedAmount)
	s.InDelta(125000.50, *found.EstimatedAmount, 1e-9)
	s.Require().NotNil(found.DateOfIncident)
	s.Equal(5, found.RequiredVerifications)
}

func (s *PostgresStoreSuite) TestNullableFields() {
	ctx := context.Background()
	report := s.newReport(models.SeverityLow)
	report.EvidenceFiles = nil
	report.Location = ""
	report.EstimatedAmount = nil
	report.DateOfIncident = nil
	s.Require().NoError(s.store.CreateReport(ctx, report))

	found, err := s.store.FindReport(ctx, report.ID)
	s.Require().NoError(err)
	s.Empty(found.EvidenceFiles)
	s.Empty(found.Location)
	s.Nil(found.EstimatedAmount)
	s.Nil(found.DateOfIncident)
}

func (s *PostgresStoreSuite) TestUpdateConsensus() {
	ctx := context.Background()
	report := s.newReport(models.SeverityHigh)
	s.Require().NoError(s.store.CreateReport(ctx, report))

	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.UpdateConsensus(ctx, report.ID, models.StatusPending, 50.0, 2, updatedAt))

	found, err := s.store.FindReport(ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.InDelta(50.0, found.CommunityScore, 1e-9)
	s.Equal(2, found.VerificationCount)

	s.Require().NoError(s.store.UpdateConsensus(ctx, report.ID, models.StatusVerified, 75.0, 3, updatedAt))

	// Terminal rows are never rewritten, whatever the caller computed.
	err = s.store.UpdateConsensus(ctx, report.ID, models.StatusDismissed, 0.0, 4, updatedAt)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	found, err = s.store.FindReport(ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, found.Status)
	s.Equal(3, found.VerificationCount)

	err = s.store.UpdateConsensus(ctx, id.ReportID(uuid.New()), models.StatusDismissed, 0.0, 0, updatedAt)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListAndCount() {
	ctx := context.Background()
	critical := s.newReport(models.SeverityCritical)
	s.Require().NoError(s.store.CreateReport(ctx, critical))
	high := s.newReport(models.SeverityHigh)
	s.Require().NoError(s.store.CreateReport(ctx, high))

	reports, err := s.store.ListReports(ctx, models.ListFilter{Severity: models.SeverityCritical})
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.Equal(critical.ID, reports[0].ID)

	reports, err = s.store.ListReports(ctx, models.ListFilter{OfficialID: s.official.ID, Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Len(reports, 1)

	count, err := s.store.CountOpenByOfficial(ctx, s.official.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Require().NoError(s.store.UpdateConsensus(ctx, high.ID, models.StatusDismissed, 20.0, 3, time.Now().UTC()))
	count, err = s.store.CountOpenByOfficial(ctx, s.official.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestDuplicateVerificationConflict() {
	ctx := context.Background()
	report := s.newReport(models.SeverityHigh)
	s.Require().NoError(s.store.CreateReport(ctx, report))

	verification := &models.ReportVerification{
		ID:         id.VerificationID(uuid.New()),
		ReportID:   report.ID,
		VerifierID: s.reporter.ID,
		IsValid:    true,
		Comment:    "matches the public ledger",
		Weight:     1.0,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.CreateVerification(ctx, verification))

	duplicate := &models.ReportVerification{
		ID:         id.VerificationID(uuid.New()),
		ReportID:   report.ID,
		VerifierID: s.reporter.ID,
		IsValid:    false,
		Weight:     1.0,
		CreatedAt:  time.Now().UTC(),
	}
	s.ErrorIs(s.store.CreateVerification(ctx, duplicate), sentinel.ErrConflict)

	verifications, err := s.store.ListVerifications(ctx, report.ID)
	s.Require().NoError(err)
	s.Require().Len(verifications, 1)
	s.Equal(verification.ID, verifications[0].ID)
	s.Equal("matches the public ledger", verifications[0].Comment)
}
