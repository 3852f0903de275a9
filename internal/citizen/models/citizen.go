package models

import (
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// Citizen is the identity-side aggregate. The consensus engine only ever
// reads its trust attributes and increments ReputationScore; the score is
// never directly settable by the citizen.
//
// Invariants:
//   - Username and Email are non-empty and unique
//   - ReputationScore is non-negative and changes only by relative increments
//   - VerificationLevel is one of the ordered tiers
type Citizen struct {
	ID                id.CitizenID         `json:"id"`
	Username          string               `json:"username"`
	Email             string               `json:"email"`
	PasswordHash      string               `json:"-"`
	ReputationScore   int                  `json:"reputation_score"`
	VerificationLevel id.VerificationLevel `json:"verification_level"`
	IsActive          bool                 `json:"is_active"`
	CreatedAt         time.Time            `json:"created_at"`
}

// TrustAttributes is the read-only slice of a citizen the engine weights by.
type TrustAttributes struct {
	ReputationScore   int
	VerificationLevel id.VerificationLevel
}

func (c *Citizen) Trust() TrustAttributes {
	return TrustAttributes{
		ReputationScore:   c.ReputationScore,
		VerificationLevel: c.VerificationLevel,
	}
}

func NewCitizen(citizenID id.CitizenID, username, email, passwordHash string, now time.Time) (*Citizen, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if len(username) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be 64 characters or less")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	return &Citizen{
		ID:                citizenID,
		Username:          username,
		Email:             email,
		PasswordHash:      passwordHash,
		ReputationScore:   0,
		VerificationLevel: id.LevelBasic,
		IsActive:          true,
		CreatedAt:         now,
	}, nil
}
