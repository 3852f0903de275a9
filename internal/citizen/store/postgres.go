package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	txctx "civitas/pkg/platform/tx"
)

// Postgres persists citizens in PostgreSQL. This store is pure I/O; trust
// gates and bonus amounts belong to the services.
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

// q returns the transaction from context when a RunInTx boundary opened one,
// otherwise the plain connection pool.
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

func (s *Postgres) Create(ctx context.Context, citizen *models.Citizen) error {
	query := `
		INSERT INTO citizens (id, username, email, password_hash, reputation_score, verification_level, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		citizen.ID.String(),
		citizen.Username,
		citizen.Email,
		citizen.PasswordHash,
		citizen.ReputationScore,
		citizen.VerificationLevel.String(),
		citizen.IsActive,
		citizen.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create citizen: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	query := `
		SELECT id, username, email, password_hash, reputation_score, verification_level, is_active, created_at
		FROM citizens
		WHERE id = $1
	`
	return scanCitizen(s.q(ctx).QueryRowContext(ctx, query, citizenID.String()))
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.Citizen, error) {
	query := `
		SELECT id, username, email, password_hash, reputation_score, verification_level, is_active, created_at
		FROM citizens
		WHERE lower(username) = lower($1)
	`
	return scanCitizen(s.q(ctx).QueryRowContext(ctx, query, username))
}

func (s *Postgres) IncrementReputation(ctx context.Context, citizenID id.CitizenID, delta int) error {
	query := `
		UPDATE citizens
		SET reputation_score = GREATEST(0, reputation_score + $2)
		WHERE id = $1
	`
	result, err := s.q(ctx).ExecContext(ctx, query, citizenID.String(), delta)
	if err != nil {
		return fmt.Errorf("increment reputation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment reputation rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) SetVerificationLevel(ctx context.Context, citizenID id.CitizenID, level id.VerificationLevel) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE citizens SET verification_level = $2 WHERE id = $1`,
		citizenID.String(), level.String(),
	)
	if err != nil {
		return fmt.Errorf("set verification level: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set verification level rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type citizenRow interface {
	Scan(dest ...any) error
}

func scanCitizen(row citizenRow) (*models.Citizen, error) {
	var citizen models.Citizen
	var rawID, rawLevel string
	err := row.Scan(
		&rawID,
		&citizen.Username,
		&citizen.Email,
		&citizen.PasswordHash,
		&citizen.ReputationScore,
		&rawLevel,
		&citizen.IsActive,
		&citizen.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan citizen: %w", err)
	}
	citizenID, err := id.ParseCitizenID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan citizen id: %w", err)
	}
	citizen.ID = citizenID
	citizen.VerificationLevel = id.VerificationLevel(rawLevel)
	return &citizen, nil
}
