package models

import (
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// RatingCategory is the dimension a citizen rates an official on.
type RatingCategory string

const (
	CategoryTransparency   RatingCategory = "TRANSPARENCY"
	CategoryEffectiveness  RatingCategory = "EFFECTIVENESS"
	CategoryIntegrity      RatingCategory = "INTEGRITY"
	CategoryCommunication  RatingCategory = "COMMUNICATION"
	CategoryResponsiveness RatingCategory = "RESPONSIVENESS"
	CategoryOverall        RatingCategory = "OVERALL"
)

var validCategories = map[RatingCategory]struct{}{
	CategoryTransparency:   {},
	CategoryEffectiveness:  {},
	CategoryIntegrity:      {},
	CategoryCommunication:  {},
	CategoryResponsiveness: {},
	CategoryOverall:        {},
}

func ParseRatingCategory(raw string) (RatingCategory, error) {
	category := RatingCategory(raw)
	if _, ok := validCategories[category]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown rating category")
	}
	return category, nil
}

// ReputationRating is one citizen's rating of one official in one category.
// The (OfficialID, CitizenID, Category) key is unique; re-submission updates
// the row in place. Weight is snapshotted at write time and never recomputed
// from the citizen's later trust attributes.
type ReputationRating struct {
	ID         id.RatingID    `json:"id"`
	OfficialID id.OfficialID  `json:"official_id"`
	CitizenID  id.CitizenID   `json:"citizen_id"`
	Category   RatingCategory `json:"category"`
	Score      int            `json:"score"`
	Weight     float64        `json:"weight"`
	Comment    string         `json:"comment,omitempty"`
	Evidence   string         `json:"evidence,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// OfficialReputation is the read-side view of an official with per-category
// breakdowns. Categories with no ratings are omitted from the map.
type OfficialReputation struct {
	Official         *Official                  `json:"official"`
	CategoryAverages map[RatingCategory]float64 `json:"category_averages"`
	RecentRatings    []*ReputationRating        `json:"recent_ratings"`
	OpenReportCount  int                        `json:"open_report_count"`
}
