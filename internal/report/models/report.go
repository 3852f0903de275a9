// Package models defines corruption reports and their verification votes.
package models

import (
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// ReportCategory classifies what kind of misconduct a report alleges.
type ReportCategory string

const (
	CategoryFinancialMisconduct ReportCategory = "FINANCIAL_MISCONDUCT"
	CategoryAbuseOfPower        ReportCategory = "ABUSE_OF_POWER"
	CategoryConflictOfInterest  ReportCategory = "CONFLICT_OF_INTEREST"
	CategoryEmbezzlement        ReportCategory = "EMBEZZLEMENT"
	CategoryBribery             ReportCategory = "BRIBERY"
	CategoryNepotism            ReportCategory = "NEPOTISM"
	CategoryMisuseOfResources   ReportCategory = "MISUSE_OF_RESOURCES"
	CategoryOther               ReportCategory = "OTHER"
)

var validCategories = map[ReportCategory]struct{}{
	CategoryFinancialMisconduct: {},
	CategoryAbuseOfPower:        {},
	CategoryConflictOfInterest:  {},
	CategoryEmbezzlement:        {},
	CategoryBribery:             {},
	CategoryNepotism:            {},
	CategoryMisuseOfResources:   {},
	CategoryOther:               {},
}

func ParseReportCategory(raw string) (ReportCategory, error) {
	category := ReportCategory(raw)
	if _, ok := validCategories[category]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown report category")
	}
	return category, nil
}

// Severity drives the verification quorum size.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func ParseSeverity(raw string) (Severity, error) {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(raw), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown severity")
}

// RequiredVerifications is the quorum size for this severity.
func (s Severity) RequiredVerifications() int {
	if s == SeverityCritical {
		return 5
	}
	return 3
}

// Status is the report lifecycle state. Only these three values are
// reachable; VERIFIED and DISMISSED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusDismissed Status = "DISMISSED"
)

// CorruptionReport is one allegation against an official. The quorum size is
// fixed at filing time from the severity; status only ever moves
// PENDING -> VERIFIED or PENDING -> DISMISSED. CommunityScore and
// VerificationCount are derived from the verification set and rewritten on
// every verification so readers see consensus progress.
type CorruptionReport struct {
	ID                    id.ReportID    `json:"id"`
	OfficialID            id.OfficialID  `json:"official_id"`
	ReporterID            id.CitizenID   `json:"reporter_id"`
	Title                 string         `json:"title"`
	Description           string         `json:"description"`
	Category              ReportCategory `json:"category"`
	Severity              Severity       `json:"severity"`
	EvidenceFiles         []string       `json:"evidence_files"`
	Location              string         `json:"location,omitempty"`
	EstimatedAmount       *float64       `json:"estimated_amount,omitempty"`
	DateOfIncident        *time.Time     `json:"date_of_incident,omitempty"`
	Status                Status         `json:"status"`
	RequiredVerifications int            `json:"required_verifications"`
	CommunityScore        float64        `json:"community_score"`
	VerificationCount     int            `json:"verification_count"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// ReportVerification is one citizen's judgment of a report. The (ReportID,
// VerifierID) key is unique and creation-only: re-verification is rejected,
// never updated.
type ReportVerification struct {
	ID         id.VerificationID `json:"id"`
	ReportID   id.ReportID       `json:"report_id"`
	VerifierID id.CitizenID      `json:"verifier_id"`
	IsValid    bool              `json:"is_valid"`
	Comment    string            `json:"comment,omitempty"`
	Weight     float64           `json:"weight"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ListFilter narrows report listings. Zero values mean no constraint.
type ListFilter struct {
	Status     Status
	Severity   Severity
	OfficialID id.OfficialID
	Limit      int
	Offset     int
}
