package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"civitas/internal/election/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	txctx "civitas/pkg/platform/tx"
)

// Postgres persists elections, candidates and votes in PostgreSQL.
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

func (s *Postgres) CreateElection(ctx context.Context, election *models.Election) error {
	query := `
		INSERT INTO elections (id, title, description, start_date, end_date, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		election.ID.String(),
		election.Title,
		election.Description,
		election.StartDate,
		election.EndDate,
		election.IsActive,
		election.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

func (s *Postgres) FindElection(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	query := `
		SELECT id, title, description, start_date, end_date, is_active, created_at
		FROM elections
		WHERE id = $1
	`
	return scanElection(s.q(ctx).QueryRowContext(ctx, query, electionID.String()))
}

func (s *Postgres) ListElections(ctx context.Context) ([]*models.Election, error) {
	query := `
		SELECT id, title, description, start_date, end_date, is_active, created_at
		FROM elections
		ORDER BY start_date, id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()

	var out []*models.Election
	for rows.Next() {
		election, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, election)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list elections rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) AddCandidate(ctx context.Context, candidate *models.Candidate) error {
	query := `
		INSERT INTO election_candidates (id, election_id, name, party, position, vote_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		candidate.ID.String(),
		candidate.ElectionID.String(),
		candidate.Name,
		candidate.Party,
		candidate.Position,
		candidate.VoteCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

func (s *Postgres) FindCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	query := `
		SELECT id, election_id, name, party, position, vote_count
		FROM election_candidates
		WHERE id = $1
	`
	return scanCandidate(s.q(ctx).QueryRowContext(ctx, query, candidateID.String()))
}

func (s *Postgres) ListCandidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error) {
	query := `
		SELECT id, election_id, name, party, position, vote_count
		FROM election_candidates
		WHERE election_id = $1
		ORDER BY position
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, electionID.String())
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.Candidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) IncrementVoteCount(ctx context.Context, candidateID id.CandidateID) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE election_candidates SET vote_count = vote_count + 1 WHERE id = $1`,
		candidateID.String(),
	)
	if err != nil {
		return fmt.Errorf("increment vote count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment vote count rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateVote(ctx context.Context, vote *models.Vote) error {
	query := `
		INSERT INTO votes (id, election_id, candidate_id, citizen_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		vote.ID.String(),
		vote.ElectionID.String(),
		vote.CandidateID.String(),
		vote.CitizenID.String(),
		vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vote: %w", err)
	}
	return nil
}

func (s *Postgres) FindVote(ctx context.Context, electionID id.ElectionID, citizenID id.CitizenID) (*models.Vote, error) {
	query := `
		SELECT id, election_id, candidate_id, citizen_id, created_at
		FROM votes
		WHERE election_id = $1 AND citizen_id = $2
	`
	row := s.q(ctx).QueryRowContext(ctx, query, electionID.String(), citizenID.String())

	var vote models.Vote
	var rawID, rawElectionID, rawCandidateID, rawCitizenID string
	err := row.Scan(&rawID, &rawElectionID, &rawCandidateID, &rawCitizenID, &vote.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan vote: %w", err)
	}

	voteID, err := id.ParseVoteID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan vote id: %w", err)
	}
	parsedElectionID, err := id.ParseElectionID(rawElectionID)
	if err != nil {
		return nil, fmt.Errorf("scan vote election id: %w", err)
	}
	parsedCandidateID, err := id.ParseCandidateID(rawCandidateID)
	if err != nil {
		return nil, fmt.Errorf("scan vote candidate id: %w", err)
	}
	parsedCitizenID, err := id.ParseCitizenID(rawCitizenID)
	if err != nil {
		return nil, fmt.Errorf("scan vote citizen id: %w", err)
	}
	vote.ID = voteID
	vote.ElectionID = parsedElectionID
	vote.CandidateID = parsedCandidateID
	vote.CitizenID = parsedCitizenID
	return &vote, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanElection(row scanner) (*models.Election, error) {
	var election models.Election
	var rawID string
	err := row.Scan(
		&rawID,
		&election.Title,
		&election.Description,
		&election.StartDate,
		&election.EndDate,
		&election.IsActive,
		&election.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan election: %w", err)
	}
	electionID, err := id.ParseElectionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan election id: %w", err)
	}
	election.ID = electionID
	return &election, nil
}

func scanCandidate(row scanner) (*models.Candidate, error) {
	var candidate models.Candidate
	var rawID, rawElectionID string
	err := row.Scan(
		&rawID,
		&rawElectionID,
		&candidate.Name,
		&candidate.Party,
		&candidate.Position,
		&candidate.VoteCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	candidateID, err := id.ParseCandidateID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan candidate id: %w", err)
	}
	electionID, err := id.ParseElectionID(rawElectionID)
	if err != nil {
		return nil, fmt.Errorf("scan candidate election id: %w", err)
	}
	candidate.ID = candidateID
	candidate.ElectionID = electionID
	return &candidate, nil
}
