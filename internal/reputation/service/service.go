// Package service implements the rating aggregator: weighted rating upserts
// and the full recomputation of an official's reputation, all inside one
// transaction.
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
	"civitas/internal/reputation/metrics"
	"civitas/internal/reputation/models"
	"civitas/internal/reputation/store"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

const recentRatingsLimit = 10

// CitizenDirectory is the slice of the identity subsystem the aggregator
// needs: trust attributes for the weight snapshot and relative reputation
// increments for bonuses.
type CitizenDirectory interface {
	FindByID(ctx context.Context, citizenID id.CitizenID) (*citizenModels.Citizen, error)
	IncrementReputation(ctx context.Context, citizenID id.CitizenID, delta int) error
}

// ReportCounter reports how many corruption reports are open against an
// official. Optional; the view shows zero when absent.
type ReportCounter interface {
	CountOpenByOfficial(ctx context.Context, officialID id.OfficialID) (int, error)
}

// AuditPublisher emits audit events after a successful commit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	officials      store.OfficialStore
	ratings        store.RatingStore
	citizens       CitizenDirectory
	storeTx        store.StoreTx
	reports        ReportCounter
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

func WithReportCounter(counter ReportCounter) Option {
	return func(s *Service) { s.reports = counter }
}

func New(officials store.OfficialStore, ratings store.RatingStore, citizens CitizenDirectory, storeTx store.StoreTx, opts ...Option) (*Service, error) {
	if officials == nil || ratings == nil || citizens == nil || storeTx == nil {
		return nil, fmt.Errorf("official store, rating store, citizen directory and tx runner are required")
	}
	svc := &Service{
		officials: officials,
		ratings:   ratings,
		citizens:  citizens,
		storeTx:   storeTx,
		logger:    slog.Default(),
		tracer:    otel.Tracer("civitas/reputation"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitRatingInput carries one rating submission. Score must be in [1,5];
// Evidence is an optional reference backing the rating.
type SubmitRatingInput struct {
	OfficialID id.OfficialID
	CitizenID  id.CitizenID
	Category   models.RatingCategory
	Score      int
	Comment    string
	Evidence   string
}

// SubmitRating upserts the citizen's rating for (official, category) and
// recomputes the official's weighted average from the full rating set. The
// upsert, the recomputation and the rater's bonus commit atomically.
func (s *Service) SubmitRating(ctx context.Context, input SubmitRatingInput) (*models.ReputationRating, error) {
	ctx, span := s.tracer.Start(ctx, "reputation.SubmitRating",
		trace.WithAttributes(
			attribute.String("official_id", input.OfficialID.String()),
			attribute.String("category", string(input.Category)),
		))
	defer span.End()

	if input.Score < 1 || input.Score > 5 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "score must be between 1 and 5")
	}
	if _, err := models.ParseRatingCategory(string(input.Category)); err != nil {
		return nil, err
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

	citizen, err := s.citizens.FindByID(ctx, input.CitizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up citizen")
	}

	trust := citizen.Trust()
	weight := consensus.RatingWeight(trust.ReputationScore, trust.VerificationLevel)
	now := requestcontext.Now(ctx)

	var persisted *models.ReputationRating
	start := time.Now()
	err = s.storeTx.RunInTx(ctx, func(ctx context.Context) error {
		rating := &models.ReputationRating{
			ID:         id.RatingID(uuid.New()),
			OfficialID: input.OfficialID,
			CitizenID:  input.CitizenID,
			Category:   input.Category,
			Score:      input.Score,
			Weight:     weight,
			Comment:    input.Comment,
			Evidence:   input.Evidence,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		persisted, err = s.ratings.Upsert(ctx, rating)
		if err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		all, err := s.ratings.ListByOfficial(ctx, input.OfficialID)
		if err != nil {
			return fmt.Errorf("list ratings: %w", err)
		}

		values := make([]consensus.WeightedValue, 0, len(all))
		for _, r := range all {
			values = append(values, consensus.WeightedValue{Value: float64(r.Score), Weight: r.Weight})
		}
		avg := consensus.WeightedAverage(values, models.NeutralReputation)

		if err := s.officials.UpdateAggregates(ctx, input.OfficialID, avg, len(all)); err != nil {
			return fmt.Errorf("update official aggregates: %w", err)
		}
		if err := s.citizens.IncrementReputation(ctx, input.CitizenID, consensus.BonusRating); err != nil {
			return fmt.Errorf("award rating bonus: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "rating conflicts with a concurrent submission")
		}
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit rating")
	}
	s.metrics.ObserveRecompute(time.Since(start))
	s.metrics.IncrementRatingsSubmitted(string(input.Category))

	s.emitAudit(ctx, audit.EventRatingSubmitted, input.CitizenID, input.OfficialID.String())
	return persisted, nil
}

// OfficialReputation builds the read-side view: the official, per-category
// weighted averages, the most recent ratings and the open report count.
func (s *Service) OfficialReputation(ctx context.Context, officialID id.OfficialID) (*models.OfficialReputation, error) {
	ctx, span := s.tracer.Start(ctx, "reputation.OfficialReputation")
	defer span.End()

	official, err := s.officials.FindByID(ctx, officialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "official not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up official")
	}

	all, err := s.ratings.ListByOfficial(ctx, officialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ratings")
	}

	byCategory := make(map[models.RatingCategory][]consensus.WeightedValue)
	for _, r := range all {
		byCategory[r.Category] = append(byCategory[r.Category], consensus.WeightedValue{
			Value:  float64(r.Score),
			Weight: r.Weight,
		})
	}
	averages := make(map[models.RatingCategory]float64, len(byCategory))
	for category, values := range byCategory {
		averages[category] = consensus.WeightedAverage(values, models.NeutralReputation)
	}

	recent := all
	if len(recent) > recentRatingsLimit {
		recent = recent[:recentRatingsLimit]
	}

	openReports := 0
	if s.reports != nil {
		openReports, err = s.reports.CountOpenByOfficial(ctx, officialID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count open reports")
		}
	}

	return &models.OfficialReputation{
		Official:         official,
		CategoryAverages: averages,
		RecentRatings:    recent,
		OpenReportCount:  openReports,
	}, nil
}

// CreateOfficial registers a new rated official. Exposed for seeding and
// administrative tooling rather than the public API.
func (s *Service) CreateOfficial(ctx context.Context, name, position string, level models.GovernmentLevel) (*models.Official, error) {
	official, err := models.NewOfficial(id.OfficialID(uuid.New()), name, position, level, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.officials.Create(ctx, official); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create official")
	}
	return official, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, citizenID id.CitizenID, subject string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		CitizenID: citizenID,
		Action:    action.String(),
		Subject:   subject,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", action.String(), "error", err)
	}
}
