// Package models defines the reputation-side aggregates: officials and the
// weighted citizen ratings folded into them.
package models

import (
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// GovernmentLevel is the tier of government an official serves in.
type GovernmentLevel string

const (
	LevelFederal   GovernmentLevel = "FEDERAL"
	LevelState     GovernmentLevel = "STATE"
	LevelMunicipal GovernmentLevel = "MUNICIPAL"
)

func ParseGovernmentLevel(raw string) (GovernmentLevel, error) {
	switch GovernmentLevel(raw) {
	case LevelFederal, LevelState, LevelMunicipal:
		return GovernmentLevel(raw), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown government level")
}

// NeutralReputation is the midpoint an official's average rests at while no
// rating weight exists.
const NeutralReputation = 2.5

// InitialTransparency is the starting transparency score for new officials.
const InitialTransparency = 50.0

// Official is the rated aggregate. AvgReputation and TotalRatings are derived
// from the full rating set and only ever written by a recomputation;
// TransparencyScore is decremented by verified corruption findings.
type Official struct {
	ID                id.OfficialID   `json:"id"`
	Name              string          `json:"name"`
	Position          string          `json:"position"`
	Level             GovernmentLevel `json:"level"`
	AvgReputation     float64         `json:"avg_reputation"`
	TotalRatings      int             `json:"total_ratings"`
	TransparencyScore float64         `json:"transparency_score"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
}

func NewOfficial(officialID id.OfficialID, name, position string, level GovernmentLevel, now time.Time) (*Official, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "official name cannot be empty")
	}
	if position == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "official position cannot be empty")
	}
	return &Official{
		ID:                officialID,
		Name:              name,
		Position:          position,
		Level:             level,
		AvgReputation:     NeutralReputation,
		TotalRatings:      0,
		TransparencyScore: InitialTransparency,
		IsActive:          true,
		CreatedAt:         now,
	}, nil
}
