// Package service implements the corruption report state machine: filing,
// weighted-quorum verification, and the terminal transitions with their
// side effects on the reported official.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	citizenModels "civitas/internal/citizen/models"
	"civitas/internal/consensus"
	reputationModels "civitas/internal/reputation/models"
	"civitas/internal/report/metrics"
	"civitas/internal/report/models"
	"civitas/internal/report/store"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// CitizenDirectory supplies verifier trust attributes and applies bonuses.
type CitizenDirectory interface {
	FindByID(ctx context.Context, citizenID id.CitizenID) (*citizenModels.Citizen, error)
	IncrementReputation(ctx context.Context, citizenID id.CitizenID, delta int) error
}

// OfficialDirectory is the slice of the reputation subsystem this feature
// touches: existence checks at filing time and penalty application on a
// verified finding.
type OfficialDirectory interface {
	FindByID(ctx context.Context, officialID id.OfficialID) (*reputationModels.Official, error)
	ApplyPenalty(ctx context.Context, officialID id.OfficialID, avgReputationDelta, transparencyDelta float64) error
}

// AuditPublisher emits audit events after a successful commit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          store.Store
	storeTx        store.StoreTx
	citizens       CitizenDirectory
	officials      OfficialDirectory
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, storeTx store.StoreTx, citizens CitizenDirectory, officials OfficialDirectory, opts ...Option) (*Service, error) {
	if st == nil || storeTx == nil || citizens == nil || officials == nil {
		return nil, fmt.Errorf("store, tx runner, citizen directory and official directory are required")
	}
	svc := &Service{
		store:     st,
		storeTx:   storeTx,
		citizens:  citizens,
		officials: officials,
		logger:    slog.Default(),
		tracer:    otel.Tracer("civitas/report"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// FileReportInput carries one report submission.
type FileReportInput struct {
	OfficialID      id.OfficialID
	ReporterID      id.CitizenID
	Title           string
	Description     string
	Category        models.ReportCategory
	Severity        models.Severity
	EvidenceFiles   []string
	Location        string
	EstimatedAmount *float64
	DateOfIncident  *time.Time
}

// File creates a PENDING report. Reporters below VERIFIED are rejected; the
// quorum size is fixed here from the severity and never changes afterwards.
func (s *Service) File(ctx context.Context, input FileReportInput) (*models.CorruptionReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.File",
		trace.WithAttributes(attribute.String("severity", string(input.Severity))))
	defer span.End()

	if input.Title == "" || input.Description == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title and description are required")
	}
	if _, err := models.ParseReportCategory(string(input.Category)); err != nil {
		return nil, err
	}
	if _, err := models.ParseSeverity(string(input.Severity)); err != nil {
		return nil, err
	}

	reporter, err := s.citizens.FindByID(ctx, input.ReporterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up reporter")
	}
	if !reporter.VerificationLevel.AtLeast(id.LevelVerified) {
		return nil, dErrors.New(dErrors.CodeForbidden, "filing a report requires VERIFIED status or above")
	}

	official, err := s.officials.FindByID(ctx, input.OfficialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "official not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up official")
	}
	if !official.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "official not found")
	}

	now := requestcontext.Now(ctx)
	report := &models.CorruptionReport{
		ID:                    id.ReportID(uuid.New()),
		OfficialID:            input.OfficialID,
		ReporterID:            input.ReporterID,
		Title:                 input.Title,
		Description:           input.Description,
		Category:              input.Category,
		Severity:              input.Severity,
		EvidenceFiles:         input.EvidenceFiles,
		Location:              input.Location,
		EstimatedAmount:       input.EstimatedAmount,
		DateOfIncident:        input.DateOfIncident,
		Status:                models.StatusPending,
		RequiredVerifications: input.Severity.RequiredVerifications(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create report")
	}
	s.metrics.IncrementReportsFiled(string(report.Severity))

	s.emitAudit(ctx, audit.EventReportFiled, input.ReporterID, report.ID.String(), "")
	return report, nil
}

// VerificationResult is the state of the report after one verification vote.
type VerificationResult struct {
	Verification      *models.ReportVerification `json:"verification"`
	Status            models.Status              `json:"status"`
	CommunityScore    float64                    `json:"community_score"`
	VerificationCount int                        `json:"verification_count"`
}

// CastVerification records one TRUSTED/GUARDIAN citizen's judgment and
// re-evaluates the weighted quorum over the full verification set. The
// verification insert, the status write, the official penalty and the
// verifier bonus commit atomically.
func (s *Service) CastVerification(ctx context.Context, reportID id.ReportID, citizenID id.CitizenID, isValid bool, comment string) (*VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "report.CastVerification",
		trace.WithAttributes(attribute.String("report_id", reportID.String())))
	defer span.End()

	report, err := s.store.FindReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up report")
	}
	if report.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "report is no longer pending verification")
	}

	verifier, err := s.citizens.FindByID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up verifier")
	}
	if !verifier.VerificationLevel.AtLeast(id.LevelTrusted) {
		return nil, dErrors.New(dErrors.CodeForbidden, "verifying reports requires TRUSTED status or above")
	}

	weight := consensus.VerificationWeight(verifier.VerificationLevel)
	now := requestcontext.Now(ctx)

	verification := &models.ReportVerification{
		ID:         id.VerificationID(uuid.New()),
		ReportID:   reportID,
		VerifierID: citizenID,
		IsValid:    isValid,
		Comment:    comment,
		Weight:     weight,
		CreatedAt:  now,
	}

	var outcome consensus.Outcome
	err = s.storeTx.RunInTx(ctx, func(ctx context.Context) error {
		// Re-read under the transaction: the gate above may have seen a
		// PENDING status that a concurrent cast has since finalized. Once a
		// report is terminal no verification, re-evaluation or penalty may
		// happen.
		current, err := s.store.FindReport(ctx, reportID)
		if err != nil {
			return fmt.Errorf("re-read report: %w", err)
		}
		if current.Status != models.StatusPending {
			return dErrors.New(dErrors.CodeInvalidState, "report is no longer pending verification")
		}

		if err := s.store.CreateVerification(ctx, verification); err != nil {
			return err
		}

		all, err := s.store.ListVerifications(ctx, reportID)
		if err != nil {
			return fmt.Errorf("list verifications: %w", err)
		}
		ballots := make([]consensus.Ballot, 0, len(all))
		for _, v := range all {
			ballots = append(ballots, consensus.Ballot{Weight: v.Weight, Positive: v.IsValid})
		}
		outcome = consensus.WeightedQuorum(ballots, current.RequiredVerifications)

		status, transitioned := statusFor(outcome.Decision)
		if err := s.store.UpdateConsensus(ctx, reportID, status, outcome.Score, outcome.Count, now); err != nil {
			return fmt.Errorf("update report consensus: %w", err)
		}
		if transitioned {
			for _, effect := range outcome.Effects() {
				if effect.Kind != consensus.EffectPenalizeOfficial {
					continue
				}
				if err := s.officials.ApplyPenalty(ctx, current.OfficialID, effect.AvgReputationDelta, effect.TransparencyDelta); err != nil {
					return fmt.Errorf("apply official penalty: %w", err)
				}
			}
		}

		if err := s.citizens.IncrementReputation(ctx, citizenID, consensus.VerificationBonus(isValid)); err != nil {
			return fmt.Errorf("award verification bonus: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "citizen has already verified this report")
		}
		if dErrors.HasCode(err, dErrors.CodeInvalidState) || errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "report is no longer pending verification")
		}
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cast verification")
	}
	s.metrics.IncrementVerificationsCast()

	status := models.StatusPending
	s.emitAudit(ctx, audit.EventVerificationCast, citizenID, reportID.String(), outcome.Decision.String())
	switch outcome.Decision {
	case consensus.DecisionVerify:
		status = models.StatusVerified
		s.metrics.IncrementTransitions(string(status))
		s.emitAudit(ctx, audit.EventReportVerified, citizenID, reportID.String(), "")
	case consensus.DecisionDismiss:
		status = models.StatusDismissed
		s.metrics.IncrementTransitions(string(status))
		s.emitAudit(ctx, audit.EventReportDismissed, citizenID, reportID.String(), "")
	}

	return &VerificationResult{
		Verification:      verification,
		Status:            status,
		CommunityScore:    outcome.Score,
		VerificationCount: outcome.Count,
	}, nil
}

// Get returns one report.
func (s *Service) Get(ctx context.Context, reportID id.ReportID) (*models.CorruptionReport, error) {
	report, err := s.store.FindReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up report")
	}
	return report, nil
}

// List returns reports matching the filter in filing order.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.CorruptionReport, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.StatusPending, models.StatusVerified, models.StatusDismissed:
		default:
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown report status")
		}
	}
	if filter.Severity != "" {
		if _, err := models.ParseSeverity(string(filter.Severity)); err != nil {
			return nil, err
		}
	}

	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reports")
	}
	return reports, nil
}

func statusFor(decision consensus.Decision) (models.Status, bool) {
	switch decision {
	case consensus.DecisionVerify:
		return models.StatusVerified, true
	case consensus.DecisionDismiss:
		return models.StatusDismissed, true
	default:
		return models.StatusPending, false
	}
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, citizenID id.CitizenID, subject, outcome string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		CitizenID: citizenID,
		Action:    action.String(),
		Subject:   subject,
		Outcome:   outcome,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", action.String(), "error", err)
	}
}
