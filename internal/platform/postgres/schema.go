package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so startup can run
// them unconditionally.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS citizens (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		reputation_score INTEGER NOT NULL DEFAULT 0 CHECK (reputation_score >= 0),
		verification_level TEXT NOT NULL DEFAULT 'BASIC',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS citizens_username_key ON citizens (lower(username))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS citizens_email_key ON citizens (lower(email))`,

	`CREATE TABLE IF NOT EXISTS officials (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		level TEXT NOT NULL,
		avg_reputation DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		total_ratings INTEGER NOT NULL DEFAULT 0,
		transparency_score DOUBLE PRECISION NOT NULL DEFAULT 50,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS reputation_ratings (
		id UUID PRIMARY KEY,
		official_id UUID NOT NULL REFERENCES officials(id),
		citizen_id UUID NOT NULL REFERENCES citizens(id),
		category TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
		weight DOUBLE PRECISION NOT NULL,
		comment TEXT,
		evidence TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT reputation_ratings_one_per_dimension UNIQUE (official_id, citizen_id, category)
	)`,
	`CREATE INDEX IF NOT EXISTS reputation_ratings_official_idx ON reputation_ratings (official_id)`,

	`CREATE TABLE IF NOT EXISTS elections (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS election_candidates (
		id UUID PRIMARY KEY,
		election_id UUID NOT NULL REFERENCES elections(id),
		name TEXT NOT NULL,
		party TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
		CONSTRAINT election_candidates_position_key UNIQUE (election_id, position)
	)`,

	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY,
		election_id UUID NOT NULL REFERENCES elections(id),
		candidate_id UUID NOT NULL REFERENCES election_candidates(id),
		citizen_id UUID NOT NULL REFERENCES citizens(id),
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT votes_one_per_citizen UNIQUE (election_id, citizen_id)
	)`,

	`CREATE TABLE IF NOT EXISTS corruption_reports (
		id UUID PRIMARY KEY,
		official_id UUID NOT NULL REFERENCES officials(id),
		reporter_id UUID NOT NULL REFERENCES citizens(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		evidence_files JSONB NOT NULL DEFAULT '[]',
		location TEXT,
		estimated_amount DOUBLE PRECISION,
		date_of_incident TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'PENDING',
		required_verifications INTEGER NOT NULL,
		community_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		verification_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS corruption_reports_official_idx ON corruption_reports (official_id)`,
	`CREATE INDEX IF NOT EXISTS corruption_reports_status_idx ON corruption_reports (status)`,

	`CREATE TABLE IF NOT EXISTS report_verifications (
		id UUID PRIMARY KEY,
		report_id UUID NOT NULL REFERENCES corruption_reports(id),
		verifier_id UUID NOT NULL REFERENCES citizens(id),
		is_valid BOOLEAN NOT NULL,
		comment TEXT,
		weight DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT report_verifications_one_per_verifier UNIQUE (report_id, verifier_id)
	)`,
}
