package store

import (
	"context"
	"sync"
	"time"

	"civitas/internal/report/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

type verificationKey struct {
	reportID   id.ReportID
	verifierID id.CitizenID
}

// Memory is an in-memory report store for tests and local development.
type Memory struct {
	mu            sync.RWMutex
	reports       map[id.ReportID]*models.CorruptionReport
	verifications map[verificationKey]*models.ReportVerification
	// order preserves insertion sequence for deterministic listings.
	reportOrder       []id.ReportID
	verificationOrder []verificationKey
}

func NewMemory() *Memory {
	return &Memory{
		reports:       make(map[id.ReportID]*models.CorruptionReport),
		verifications: make(map[verificationKey]*models.ReportVerification),
	}
}

func (s *Memory) CreateReport(_ context.Context, report *models.CorruptionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := cloneReport(report)
	s.reports[report.ID] = clone
	s.reportOrder = append(s.reportOrder, report.ID)
	return nil
}

func (s *Memory) FindReport(_ context.Context, reportID id.ReportID) (*models.CorruptionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneReport(report), nil
}

func (s *Memory) UpdateConsensus(_ context.Context, reportID id.ReportID, status models.Status, communityScore float64, verificationCount int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if report.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	report.Status = status
	report.CommunityScore = communityScore
	report.VerificationCount = verificationCount
	report.UpdatedAt = updatedAt
	return nil
}

func (s *Memory) ListReports(_ context.Context, filter models.ListFilter) ([]*models.CorruptionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.CorruptionReport
	for _, reportID := range s.reportOrder {
		report := s.reports[reportID]
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && report.Severity != filter.Severity {
			continue
		}
		if !filter.OfficialID.IsNil() && report.OfficialID != filter.OfficialID {
			continue
		}
		matched = append(matched, cloneReport(report))
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *Memory) CountOpenByOfficial(_ context.Context, officialID id.OfficialID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, report := range s.reports {
		if report.OfficialID == officialID && report.Status == models.StatusPending {
			count++
		}
	}
	return count, nil
}

func (s *Memory) CreateVerification(_ context.Context, verification *models.ReportVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := verificationKey{verification.ReportID, verification.VerifierID}
	if _, exists := s.verifications[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *verification
	s.verifications[key] = &clone
	s.verificationOrder = append(s.verificationOrder, key)
	return nil
}

func (s *Memory) ListVerifications(_ context.Context, reportID id.ReportID) ([]*models.ReportVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ReportVerification
	for _, key := range s.verificationOrder {
		if key.reportID != reportID {
			continue
		}
		clone := *s.verifications[key]
		out = append(out, &clone)
	}
	return out, nil
}

func cloneReport(report *models.CorruptionReport) *models.CorruptionReport {
	clone := *report
	clone.EvidenceFiles = append([]string(nil), report.EvidenceFiles...)
	if report.EstimatedAmount != nil {
		amount := *report.EstimatedAmount
		clone.EstimatedAmount = &amount
	}
	if report.DateOfIncident != nil {
		date := *report.DateOfIncident
		clone.DateOfIncident = &date
	}
	return &clone
}
