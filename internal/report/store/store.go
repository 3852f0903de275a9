// Package store persists corruption reports and their verifications.
package store

import (
	"context"
	"time"

	"civitas/internal/report/models"
	id "civitas/pkg/domain"
)

// Store is the report persistence surface.
type Store interface {
	CreateReport(ctx context.Context, report *models.CorruptionReport) error
	FindReport(ctx context.Context, reportID id.ReportID) (*models.CorruptionReport, error)

	// UpdateConsensus writes the derived consensus fields and the (possibly
	// unchanged) status. Terminal reports are never rewritten; attempting to
	// returns sentinel.ErrInvalidState.
	UpdateConsensus(ctx context.Context, reportID id.ReportID, status models.Status, communityScore float64, verificationCount int, updatedAt time.Time) error

	ListReports(ctx context.Context, filter models.ListFilter) ([]*models.CorruptionReport, error)
	CountOpenByOfficial(ctx context.Context, officialID id.OfficialID) (int, error)

	// CreateVerification returns sentinel.ErrConflict when the citizen
	// already verified the report.
	CreateVerification(ctx context.Context, verification *models.ReportVerification) error
	ListVerifications(ctx context.Context, reportID id.ReportID) ([]*models.ReportVerification, error)
}

// StoreTx is the transactional boundary for verification mutations.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
