package audit

import (
	"time"

	id "civitas/pkg/domain"
)

// Event is emitted from domain logic to capture key civic actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time    `json:"timestamp"`
	CitizenID id.CitizenID `json:"citizen_id"`
	Action    string       `json:"action"`
	Subject   string       `json:"subject,omitempty"`
	Outcome   string       `json:"outcome,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	// Device is a human-readable device description captured at login.
	Device string `json:"device,omitempty"`
}

type AuditEvent string

const (
	// Identity events
	EventCitizenRegistered AuditEvent = "citizen_registered"
	EventCitizenLogin      AuditEvent = "citizen_login"

	// Reputation events
	EventRatingSubmitted AuditEvent = "rating_submitted"

	// Election events
	EventVoteCast AuditEvent = "vote_cast"

	// Corruption report events
	EventReportFiled      AuditEvent = "report_filed"
	EventReportVerified   AuditEvent = "report_verified"
	EventReportDismissed  AuditEvent = "report_dismissed"
	EventVerificationCast AuditEvent = "verification_cast"
)

func (e AuditEvent) String() string { return string(e) }
