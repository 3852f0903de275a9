// Package service implements the vote ledger: exactly-once vote acceptance,
// tally maintenance, and result computation with explicit tie ordering.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"civitas/internal/consensus"
	"civitas/internal/election/cache"
	"civitas/internal/election/metrics"
	"civitas/internal/election/models"
	"civitas/internal/election/store"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// CitizenDirectory awards the voting bonus through a relative increment.
type CitizenDirectory interface {
	IncrementReputation(ctx context.Context, citizenID id.CitizenID, delta int) error
}

// AuditPublisher emits audit events after a successful commit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          store.Store
	storeTx        store.StoreTx
	citizens       CitizenDirectory
	results        cache.ResultsCache
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

func WithResultsCache(c cache.ResultsCache) Option {
	return func(s *Service) { s.results = c }
}

func New(st store.Store, storeTx store.StoreTx, citizens CitizenDirectory, opts ...Option) (*Service, error) {
	if st == nil || storeTx == nil || citizens == nil {
		return nil, fmt.Errorf("store, tx runner and citizen directory are required")
	}
	svc := &Service{
		store:    st,
		storeTx:  storeTx,
		citizens: citizens,
		logger:   slog.Default(),
		tracer:   otel.Tracer("civitas/election"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CastVote accepts at most one vote per citizen per election, ever. A second
// attempt fails with Conflict and leaves every tally untouched.
func (s *Service) CastVote(ctx context.Context, electionID id.ElectionID, citizenID id.CitizenID, candidateID id.CandidateID) (*models.Vote, error) {
	ctx, span := s.tracer.Start(ctx, "election.CastVote",
		trace.WithAttributes(attribute.String("election_id", electionID.String())))
	defer span.End()

	election, err := s.store.FindElection(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementVotesRejected("election_not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up election")
	}

	candidate, err := s.store.FindCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementVotesRejected("candidate_not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up candidate")
	}
	if candidate.ElectionID != electionID {
		s.metrics.IncrementVotesRejected("candidate_not_found")
		return nil, dErrors.New(dErrors.CodeNotFound, "candidate does not belong to this election")
	}

	now := requestcontext.Now(ctx)
	if !election.Open(now) {
		s.metrics.IncrementVotesRejected("election_closed")
		return nil, dErrors.New(dErrors.CodeInvalidState, "election is not open for voting")
	}

	vote := &models.Vote{
		ID:          id.VoteID(uuid.New()),
		ElectionID:  electionID,
		CandidateID: candidateID,
		CitizenID:   citizenID,
		CreatedAt:   now,
	}

	err = s.storeTx.RunInTx(ctx, func(ctx context.Context) error {
		// Re-read under the transaction: the election may have been
		// deactivated since the gate above.
		current, err := s.store.FindElection(ctx, electionID)
		if err != nil {
			return fmt.Errorf("re-read election: %w", err)
		}
		if !current.Open(now) {
			return dErrors.New(dErrors.CodeInvalidState, "election is not open for voting")
		}

		if err := s.store.CreateVote(ctx, vote); err != nil {
			return err
		}
		if err := s.store.IncrementVoteCount(ctx, candidateID); err != nil {
			return fmt.Errorf("increment tally: %w", err)
		}
		if err := s.citizens.IncrementReputation(ctx, citizenID, consensus.BonusVote); err != nil {
			return fmt.Errorf("award vote bonus: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementVotesRejected("duplicate")
			return nil, dErrors.New(dErrors.CodeConflict, "citizen has already voted in this election")
		}
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			s.metrics.IncrementVotesRejected("election_closed")
			return nil, dErrors.New(dErrors.CodeInvalidState, "election is not open for voting")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cast vote")
	}
	s.metrics.IncrementVotesCast()

	s.invalidateResults(ctx, electionID)
	s.emitAudit(ctx, audit.EventVoteCast, citizenID, electionID.String())
	return vote, nil
}

// Results computes percentages over the current tallies. Candidates come
// back in descending vote count; ties keep ballot order, with no secondary
// sort key.
func (s *Service) Results(ctx context.Context, electionID id.ElectionID) (*models.Results, error) {
	ctx, span := s.tracer.Start(ctx, "election.Results")
	defer span.End()

	if s.results != nil {
		cached, hit, err := s.results.Get(ctx, electionID)
		if err != nil {
			s.logger.WarnContext(ctx, "results cache read failed", "error", err)
		}
		if hit {
			s.metrics.IncrementResultsCache("hit")
			return cached, nil
		}
		s.metrics.IncrementResultsCache("miss")
	}

	if _, err := s.store.FindElection(ctx, electionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up election")
	}

	candidates, err := s.store.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}

	totalVotes := 0
	for _, c := range candidates {
		totalVotes += c.VoteCount
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].VoteCount > candidates[j].VoteCount
	})

	results := &models.Results{
		ElectionID: electionID,
		TotalVotes: totalVotes,
		Candidates: make([]*models.CandidateResult, 0, len(candidates)),
	}
	for _, c := range candidates {
		percentage := 0.0
		if totalVotes > 0 {
			percentage = float64(c.VoteCount) / float64(totalVotes) * 100
		}
		results.Candidates = append(results.Candidates, &models.CandidateResult{
			Candidate:  c,
			Percentage: percentage,
		})
	}

	if s.results != nil {
		if err := s.results.Set(ctx, results); err != nil {
			s.logger.WarnContext(ctx, "results cache write failed", "error", err)
		}
	}
	return results, nil
}

// List returns elections filtered relative to the request time.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Election, error) {
	all, err := s.store.ListElections(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}
	if filter == models.FilterAll || filter == "" {
		return all, nil
	}

	now := requestcontext.Now(ctx)
	out := make([]*models.Election, 0, len(all))
	for _, e := range all {
		if matchesFilter(e, filter, now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matchesFilter(e *models.Election, filter models.ListFilter, now time.Time) bool {
	switch filter {
	case models.FilterActive:
		return e.Open(now)
	case models.FilterUpcoming:
		return now.Before(e.StartDate)
	case models.FilterFinished:
		return now.After(e.EndDate) || !e.IsActive
	}
	return true
}

// Get returns one election.
func (s *Service) Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	election, err := s.store.FindElection(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up election")
	}
	return election, nil
}

// MyVote returns the citizen's vote in the election, or NotFound.
func (s *Service) MyVote(ctx context.Context, electionID id.ElectionID, citizenID id.CitizenID) (*models.Vote, error) {
	vote, err := s.store.FindVote(ctx, electionID, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no vote cast in this election")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up vote")
	}
	return vote, nil
}

// CreateElection registers a new election. Exposed for seeding and
// administrative tooling rather than the public API.
func (s *Service) CreateElection(ctx context.Context, title, description string, start, end time.Time) (*models.Election, error) {
	election, err := models.NewElection(id.ElectionID(uuid.New()), title, description, start, end, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateElection(ctx, election); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}
	return election, nil
}

// AddCandidate appends a candidate to the ballot; the ballot position is the
// stable tie-break in results.
func (s *Service) AddCandidate(ctx context.Context, electionID id.ElectionID, name, party string) (*models.Candidate, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate name cannot be empty")
	}

	existing, err := s.store.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}

	candidate := &models.Candidate{
		ID:         id.CandidateID(uuid.New()),
		ElectionID: electionID,
		Name:       name,
		Party:      party,
		Position:   len(existing),
	}
	if err := s.store.AddCandidate(ctx, candidate); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "ballot position already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add candidate")
	}
	s.invalidateResults(ctx, electionID)
	return candidate, nil
}

func (s *Service) invalidateResults(ctx context.Context, electionID id.ElectionID) {
	if s.results == nil {
		return
	}
	if err := s.results.Invalidate(ctx, electionID); err != nil {
		s.logger.WarnContext(ctx, "results cache invalidation failed", "error", err)
	}
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
