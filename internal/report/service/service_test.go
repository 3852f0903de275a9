package service

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
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit/publisher"
	txctx "civitas/pkg/platform/tx"
	"civitas/pkg/requestcontext"
)

type ReportServiceSuite struct {
	suite.Suite
	svc       *Service
	store     *store.Memory
	citizens  *citizenStore.Memory
	officials *reputationStore.Memory
	sink      *publisher.Memory
	ctx       context.Context

	now      time.Time
	official *reputationModels.Official
	reporter *citizenModels.Citizen
	userSeq  int
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.citizens = citizenStore.NewMemory()
	s.officials = reputationStore.NewMemory()
	s.sink = publisher.NewMemory()
	s.userSeq = 0

	svc, err := New(s.store, txctx.NewMemoryRunner(), s.citizens, s.officials,
		WithAuditPublisher(s.sink))
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	official, err := reputationModels.NewOfficial(id.OfficialID(uuid.New()), "Maria Flores", "Mayor", reputationModels.LevelMunicipal, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.officials.Create(s.ctx, official))
	s.official = official

	s.reporter = s.newCitizen(id.LevelVerified)
}

func (s *ReportServiceSuite) newCitizen(level id.VerificationLevel) *citizenModels.Citizen {
	s.userSeq++
	username := "citizen" + string(rune('a'+s.userSeq))
	citizen, err := citizenModels.NewCitizen(id.CitizenID(uuid.New()), username, username+"@example.org", "$2a$10$hash", s.now)
	s.Require().NoError(err)
	citizen.VerificationLevel = level
	s.Require().NoError(s.citizens.Create(s.ctx, citizen))
	return citizen
}

func (s *ReportServiceSuite) fileReport(severity models.Severity) *models.CorruptionReport {
	report, err := s.svc.File(s.ctx, FileReportInput{
		OfficialID:  s.official.ID,
		ReporterID:  s.reporter.ID,
		Title:       "Missing budget funds",
		Description: "Funds allocated for road repair are unaccounted for.",
		Category:    models.CategoryEmbezzlement,
		Severity:    severity,
	})
	s.Require().NoError(err)
	return report
}

func (s *ReportServiceSuite) verify(report *models.CorruptionReport, verifier *citizenModels.Citizen, isValid bool) *VerificationResult {
	result, err := s.svc.CastVerification(s.ctx, report.ID, verifier.ID, isValid, "")
	s.Require().NoError(err)
	return result
}

func (s *ReportServiceSuite) TestFile() {
	s.Run("critical severity requires five verifications", func() {
		report := s.fileReport(models.SeverityCritical)
		s.Equal(models.StatusPending, report.Status)
		s.Equal(5, report.RequiredVerifications)
	})

	s.Run("other severities require three verifications", func() {
		report := s.fileReport(models.SeverityHigh)
		s.Equal(3, report.RequiredVerifications)
	})

	s.Run("basic reporter is forbidden", func() {
		basic := s.newCitizen(id.LevelBasic)
		_, err := s.svc.File(s.ctx, FileReportInput{
			OfficialID:  s.official.ID,
			ReporterID:  basic.ID,
			Title:       "t",
			Description: "d",
			Category:    models.CategoryBribery,
			Severity:    models.SeverityLow,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown official is not found", func() {
		_, err := s.svc.File(s.ctx, FileReportInput{
			OfficialID:  id.OfficialID(uuid.New()),
			ReporterID:  s.reporter.ID,
			Title:       "t",
			Description: "d",
			Category:    models.CategoryBribery,
			Severity:    models.SeverityLow,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ReportServiceSuite) TestCastVerificationRejections() {
	report := s.fileReport(models.SeverityHigh)
	trusted := s.newCitizen(id.LevelTrusted)

	s.Run("unknown report is not found", func() {
		_, err := s.svc.CastVerification(s.ctx, id.ReportID(uuid.New()), trusted.ID, true, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("verified-level citizen is forbidden", func() {
		verified := s.newCitizen(id.LevelVerified)
		_, err := s.svc.CastVerification(s.ctx, report.ID, verified.ID, true, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("duplicate verification conflicts", func() {
		s.verify(report, trusted, true)
		_, err := s.svc.CastVerification(s.ctx, report.ID, trusted.ID, false, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ReportServiceSuite) TestBelowQuorumStaysPending() {
	report := s.fileReport(models.SeverityHigh)

	result := s.verify(report, s.newCitizen(id.LevelTrusted), true)
	s.Equal(models.StatusPending, result.Status)
	result = s.verify(report, s.newCitizen(id.LevelTrusted), true)
	s.Equal(models.StatusPending, result.Status)
	s.Equal(2, result.VerificationCount)
	s.InDelta(100.0, result.CommunityScore, 1e-9)

	stored, err := s.svc.Get(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
	s.Equal(2, stored.VerificationCount)
	s.InDelta(100.0, stored.CommunityScore, 1e-9)
}

func (s *ReportServiceSuite) TestCriticalReportVerification() {
	report := s.fileReport(models.SeverityCritical)

	for i := 0; i < 4; i++ {
		result := s.verify(report, s.newCitizen(id.LevelTrusted), true)
		s.Equal(models.StatusPending, result.Status)
	}

	guardian := s.newCitizen(id.LevelGuardian)
	result := s.verify(report, guardian, false)

	// positive 4.0 of total 6.0 = 66.7 >= 60 at quorum 5
	s.Equal(models.StatusVerified, result.Status)
	s.Equal(5, result.VerificationCount)
	s.InDelta(66.666666, result.CommunityScore, 1e-3)

	stored, err := s.svc.Get(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, stored.Status)
	s.Equal(5, stored.VerificationCount)
	s.InDelta(66.666666, stored.CommunityScore, 1e-3)

	official, err := s.officials.FindByID(s.ctx, s.official.ID)
	s.Require().NoError(err)
	s.InDelta(2.0, official.AvgReputation, 1e-9)
	s.InDelta(30.0, official.TransparencyScore, 1e-9)

	verifier, err := s.citizens.FindByID(s.ctx, guardian.ID)
	s.Require().NoError(err)
	s.Equal(10, verifier.ReputationScore)

	s.Run("terminal report rejects further verification", func() {
		_, err := s.svc.CastVerification(s.ctx, report.ID, s.newCitizen(id.LevelTrusted).ID, true, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ReportServiceSuite) TestDismissal() {
	report := s.fileReport(models.SeverityHigh)

	s.verify(report, s.newCitizen(id.LevelTrusted), false)
	s.verify(report, s.newCitizen(id.LevelTrusted), false)
	result := s.verify(report, s.newCitizen(id.LevelTrusted), false)

	s.Equal(models.StatusDismissed, result.Status)
	s.InDelta(0.0, result.CommunityScore, 1e-9)

	// Dismissal carries no official penalty.
	official, err := s.officials.FindByID(s.ctx, s.official.ID)
	s.Require().NoError(err)
	s.InDelta(reputationModels.NeutralReputation, official.AvgReputation, 1e-9)
	s.InDelta(reputationModels.InitialTransparency, official.TransparencyScore, 1e-9)
}

func (s *ReportServiceSuite) TestInconclusiveAtQuorumStaysPending() {
	report := s.fileReport(models.SeverityHigh)

	// positive 2.0 (guardian valid), negative 3.0 (guardian + trusted
	// invalid): score exactly 40 at quorum count 3.
	s.verify(report, s.newCitizen(id.LevelGuardian), true)
	s.verify(report, s.newCitizen(id.LevelGuardian), false)
	result := s.verify(report, s.newCitizen(id.LevelTrusted), false)

	s.Equal(3, result.VerificationCount)
	s.InDelta(40.0, result.CommunityScore, 1e-9)
	s.Equal(models.StatusPending, result.Status)

	stored, err := s.svc.Get(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *ReportServiceSuite) TestVerificationBonuses() {
	report := s.fileReport(models.SeverityHigh)

	valid := s.newCitizen(id.LevelTrusted)
	invalid := s.newCitizen(id.LevelTrusted)
	s.verify(report, valid, true)
	s.verify(report, invalid, false)

	validCitizen, err := s.citizens.FindByID(s.ctx, valid.ID)
	s.Require().NoError(err)
	s.Equal(20, validCitizen.ReputationScore)

	invalidCitizen, err := s.citizens.FindByID(s.ctx, invalid.ID)
	s.Require().NoError(err)
	s.Equal(10, invalidCitizen.ReputationScore)
}

// staleStatusStore serves one caller a stale PENDING snapshot of a report,
// simulating a status read that interleaved before a concurrent cast's
// commit. Every later read hits the real store.
type staleStatusStore struct {
	store.Store
	stale *models.CorruptionReport
}

func (s *staleStatusStore) FindReport(ctx context.Context, reportID id.ReportID) (*models.CorruptionReport, error) {
	if s.stale != nil && s.stale.ID == reportID {
		pending := s.stale
		s.stale = nil
		return pending, nil
	}
	return s.Store.FindReport(ctx, reportID)
}

func (s *ReportServiceSuite) TestVerificationAfterConcurrentFinalization() {
	report := s.fileReport(models.SeverityHigh)

	s.verify(report, s.newCitizen(id.LevelTrusted), true)
	s.verify(report, s.newCitizen(id.LevelTrusted), true)
	result := s.verify(report, s.newCitizen(id.LevelTrusted), true)
	s.Require().Equal(models.StatusVerified, result.Status)

	official, err := s.officials.FindByID(s.ctx, s.official.ID)
	s.Require().NoError(err)
	s.InDelta(reputationModels.NeutralReputation-0.5, official.AvgReputation, 1e-9)
	s.InDelta(reputationModels.InitialTransparency-20.0, official.TransparencyScore, 1e-9)

	// A caster whose status read raced the finalization sees the stale
	// PENDING snapshot; the in-transaction re-read must reject the cast
	// before any write happens.
	stale := *report
	racer, err := New(&staleStatusStore{Store: s.store, stale: &stale}, txctx.NewMemoryRunner(), s.citizens, s.officials)
	s.Require().NoError(err)

	late := s.newCitizen(id.LevelTrusted)
	_, err = racer.CastVerification(s.ctx, report.ID, late.ID, false, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	// The penalty stays applied exactly once and the verification set is
	// untouched.
	official, err = s.officials.FindByID(s.ctx, s.official.ID)
	s.Require().NoError(err)
	s.InDelta(reputationModels.NeutralReputation-0.5, official.AvgReputation, 1e-9)
	s.InDelta(reputationModels.InitialTransparency-20.0, official.TransparencyScore, 1e-9)

	verifications, err := s.store.ListVerifications(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Len(verifications, 3)

	stored, err := s.svc.Get(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, stored.Status)
	s.Equal(3, stored.VerificationCount)
}

func (s *ReportServiceSuite) TestList() {
	critical := s.fileReport(models.SeverityCritical)
	s.fileReport(models.SeverityHigh)

	s.Run("severity filter", func() {
		reports, err := s.svc.List(s.ctx, models.ListFilter{Severity: models.SeverityCritical})
		s.Require().NoError(err)
		s.Require().Len(reports, 1)
		s.Equal(critical.ID, reports[0].ID)
	})

	s.Run("status filter", func() {
		reports, err := s.svc.List(s.ctx, models.ListFilter{Status: models.StatusPending})
		s.Require().NoError(err)
		s.Len(reports, 2)
	})

	s.Run("pagination", func() {
		reports, err := s.svc.List(s.ctx, models.ListFilter{Limit: 1, Offset: 1})
		s.Require().NoError(err)
		s.Len(reports, 1)
	})

	s.Run("unknown status is invalid", func() {
		_, err := s.svc.List(s.ctx, models.ListFilter{Status: "INVESTIGATING"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
