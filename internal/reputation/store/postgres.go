package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"civitas/internal/reputation/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	txctx "civitas/pkg/platform/tx"
)

// Postgres persists officials and ratings in PostgreSQL.
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

func (s *Postgres) Create(ctx context.Context, official *models.Official) error {
	query := `
		INSERT INTO officials (id, name, position, level, avg_reputation, total_ratings, transparency_score, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		official.ID.String(),
		official.Name,
		official.Position,
		string(official.Level),
		official.AvgReputation,
		official.TotalRatings,
		official.TransparencyScore,
		official.IsActive,
		official.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create official: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, officialID id.OfficialID) (*models.Official, error) {
	query := `
		SELECT id, name, position, level, avg_reputation, total_ratings, transparency_score, is_active, created_at
		FROM officials
		WHERE id = $1
	`
	row := s.q(ctx).QueryRowContext(ctx, query, officialID.String())

	var official models.Official
	var rawID, rawLevel string
	err := row.Scan(
		&rawID,
		&official.Name,
		&official.Position,
		&rawLevel,
		&official.AvgReputation,
		&official.TotalRatings,
		&official.TransparencyScore,
		&official.IsActive,
		&official.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan official: %w", err)
	}
	parsed, err := id.ParseOfficialID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan official id: %w", err)
	}
	official.ID = parsed
	official.Level = models.GovernmentLevel(rawLevel)
	return &official, nil
}

func (s *Postgres) UpdateAggregates(ctx context.Context, officialID id.OfficialID, avgReputation float64, totalRatings int) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE officials SET avg_reputation = $2, total_ratings = $3 WHERE id = $1`,
		officialID.String(), avgReputation, totalRatings,
	)
	if err != nil {
		return fmt.Errorf("update official aggregates: %w", err)
	}
	return requireRow(result, "update official aggregates")
}

func (s *Postgres) ApplyPenalty(ctx context.Context, officialID id.OfficialID, avgReputationDelta, transparencyDelta float64) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE officials
		 SET avg_reputation = avg_reputation + $2, transparency_score = transparency_score + $3
		 WHERE id = $1`,
		officialID.String(), avgReputationDelta, transparencyDelta,
	)
	if err != nil {
		return fmt.Errorf("apply official penalty: %w", err)
	}
	return requireRow(result, "apply official penalty")
}

func (s *Postgres) Upsert(ctx context.Context, rating *models.ReputationRating) (*models.ReputationRating, error) {
	query := `
		INSERT INTO reputation_ratings (id, official_id, citizen_id, category, score, weight, comment, evidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT reputation_ratings_one_per_dimension DO UPDATE
		SET score = EXCLUDED.score,
		    weight = EXCLUDED.weight,
		    comment = EXCLUDED.comment,
		    evidence = EXCLUDED.evidence,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, official_id, citizen_id, category, score, weight, COALESCE(comment, ''), COALESCE(evidence, ''), created_at, updated_at
	`
	row := s.q(ctx).QueryRowContext(ctx, query,
		rating.ID.String(),
		rating.OfficialID.String(),
		rating.CitizenID.String(),
		string(rating.Category),
		rating.Score,
		rating.Weight,
		nullable(rating.Comment),
		nullable(rating.Evidence),
		rating.CreatedAt,
		rating.UpdatedAt,
	)
	return scanRating(row)
}

func (s *Postgres) ListByOfficial(ctx context.Context, officialID id.OfficialID) ([]*models.ReputationRating, error) {
	query := `
		SELECT id, official_id, citizen_id, category, score, weight, COALESCE(comment, ''), COALESCE(evidence, ''), created_at, updated_at
		FROM reputation_ratings
		WHERE official_id = $1
		ORDER BY updated_at DESC, id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, officialID.String())
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var out []*models.ReputationRating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratings rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRating(row scanner) (*models.ReputationRating, error) {
	var rating models.ReputationRating
	var rawID, rawOfficialID, rawCitizenID, rawCategory string
	err := row.Scan(
		&rawID,
		&rawOfficialID,
		&rawCitizenID,
		&rawCategory,
		&rating.Score,
		&rating.Weight,
		&rating.Comment,
		&rating.Evidence,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan rating: %w", err)
	}

	ratingID, err := id.ParseRatingID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan rating id: %w", err)
	}
	officialID, err := id.ParseOfficialID(rawOfficialID)
	if err != nil {
		return nil, fmt.Errorf("scan rating official id: %w", err)
	}
	citizenID, err := id.ParseCitizenID(rawCitizenID)
	if err != nil {
		return nil, fmt.Errorf("scan rating citizen id: %w", err)
	}
	rating.ID = ratingID
	rating.OfficialID = officialID
	rating.CitizenID = citizenID
	rating.Category = models.RatingCategory(rawCategory)
	return &rating, nil
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
