package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"civitas/internal/report/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	txctx "civitas/pkg/platform/tx"
)

// Postgres persists corruption reports and verifications in PostgreSQL.
// Evidence file references are stored as a JSONB array.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txctx.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const reportColumns = `id, official_id, reporter_id, title, description, category, severity,
	evidence_files, COALESCE(location, ''), estimated_amount, date_of_incident,
	status, required_verifications, community_score, verification_count,
	created_at, updated_at`

func (s *Postgres) CreateReport(ctx context.Context, report *models.CorruptionReport) error {
	evidence, err := json.Marshal(report.EvidenceFiles)
	if err != nil {
		return fmt.Errorf("marshal evidence files: %w", err)
	}
	query := `
		INSERT INTO corruption_reports
			(id, official_id, reporter_id, title, description, category, severity,
			 evidence_files, location, estimated_amount, date_of_incident,
			 status, required_verifications, community_score, verification_count,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		report.ID.String(),
		report.OfficialID.String(),
		report.ReporterID.String(),
		report.Title,
		report.Description,
		string(report.Category),
		string(report.Severity),
		evidence,
		nullableString(report.Location),
		report.EstimatedAmount,
		report.DateOfIncident,
		string(report.Status),
		report.RequiredVerifications,
		report.CommunityScore,
		report.VerificationCount,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *Postgres) FindReport(ctx context.Context, reportID id.ReportID) (*models.CorruptionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM corruption_reports WHERE id = $1`
	return scanReport(s.q(ctx).QueryRowContext(ctx, query, reportID.String()))
}

func (s *Postgres) UpdateConsensus(ctx context.Context, reportID id.ReportID, status models.Status, communityScore float64, verificationCount int, updatedAt time.Time) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE corruption_reports
		 SET status = $2, community_score = $3, verification_count = $4, updated_at = $5
		 WHERE id = $1 AND status = $6`,
		reportID.String(), string(status), communityScore, verificationCount, updatedAt,
		string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("update report consensus: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report consensus rows affected: %w", err)
	}
	if rows == 0 {
		// Missing row or a report already in a terminal state.
		var current string
		err := s.q(ctx).QueryRowContext(ctx,
			`SELECT status FROM corruption_reports WHERE id = $1`, reportID.String(),
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update report consensus status check: %w", err)
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) ListReports(ctx context.Context, filter models.ListFilter) ([]*models.CorruptionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM corruption_reports WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Severity != "" {
		query += ` AND severity = ` + arg(string(filter.Severity))
	}
	if !filter.OfficialID.IsNil() {
		query += ` AND official_id = ` + arg(filter.OfficialID.String())
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*models.CorruptionReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) CountOpenByOfficial(ctx context.Context, officialID id.OfficialID) (int, error) {
	var count int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corruption_reports WHERE official_id = $1 AND status = $2`,
		officialID.String(), string(models.StatusPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open reports: %w", err)
	}
	return count, nil
}

func (s *Postgres) CreateVerification(ctx context.Context, verification *models.ReportVerification) error {
	query := `
		INSERT INTO report_verifications (id, report_id, verifier_id, is_valid, comment, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		verification.ID.String(),
		verification.ReportID.String(),
		verification.VerifierID.String(),
		verification.IsValid,
		nullableString(verification.Comment),
		verification.Weight,
		verification.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create verification: %w", err)
	}
	return nil
}

func (s *Postgres) ListVerifications(ctx context.Context, reportID id.ReportID) ([]*models.ReportVerification, error) {
	query := `
		SELECT id, report_id, verifier_id, is_valid, COALESCE(comment, ''), weight, created_at
		FROM report_verifications
		WHERE report_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, reportID.String())
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []*models.ReportVerification
	for rows.Next() {
		var verification models.ReportVerification
		var rawID, rawReportID, rawVerifierID string
		err := rows.Scan(
			&rawID,
			&rawReportID,
			&rawVerifierID,
			&verification.IsValid,
			&verification.Comment,
			&verification.Weight,
			&verification.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		verificationID, err := id.ParseVerificationID(rawID)
		if err != nil {
			return nil, fmt.Errorf("scan verification id: %w", err)
		}
		parsedReportID, err := id.ParseReportID(rawReportID)
		if err != nil {
			return nil, fmt.Errorf("scan verification report id: %w", err)
		}
		verifierID, err := id.ParseCitizenID(rawVerifierID)
		if err != nil {
			return nil, fmt.Errorf("scan verification verifier id: %w", err)
		}
		verification.ID = verificationID
		verification.ReportID = parsedReportID
		verification.VerifierID = verifierID
		out = append(out, &verification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verifications rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*models.CorruptionReport, error) {
	var report models.CorruptionReport
	var rawID, rawOfficialID, rawReporterID, rawCategory, rawSeverity, rawStatus string
	var evidence []byte
	var estimatedAmount sql.NullFloat64
	var dateOfIncident sql.NullTime

	err := row.Scan(
		&rawID,
		&rawOfficialID,
		&rawReporterID,
		&report.Title,
		&report.Description,
		&rawCategory,
		&rawSeverity,
		&evidence,
		&report.Location,
		&estimatedAmount,
		&dateOfIncident,
		&rawStatus,
		&report.RequiredVerifications,
		&report.CommunityScore,
		&report.VerificationCount,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}

	reportID, err := id.ParseReportID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan report id: %w", err)
	}
	officialID, err := id.ParseOfficialID(rawOfficialID)
	if err != nil {
		return nil, fmt.Errorf("scan report official id: %w", err)
	}
	reporterID, err := id.ParseCitizenID(rawReporterID)
	if err != nil {
		return nil, fmt.Errorf("scan report reporter id: %w", err)
	}
	report.ID = reportID
	report.OfficialID = officialID
	report.ReporterID = reporterID
	report.Category = models.ReportCategory(rawCategory)
	report.Severity = models.Severity(rawSeverity)
	report.Status = models.Status(rawStatus)

	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &report.EvidenceFiles); err != nil {
			return nil, fmt.Errorf("unmarshal evidence files: %w", err)
		}
	}
	if estimatedAmount.Valid {
		report.EstimatedAmount = &estimatedAmount.Float64
	}
	if dateOfIncident.Valid {
		report.DateOfIncident = &dateOfIncident.Time
	}
	return &report, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
