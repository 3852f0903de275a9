package domain

import (
	"github.com/google/uuid"

	dErrors "civitas/pkg/domain-errors"
)

// Typed UUID identifiers for the core entities. Distinct types keep a
// CitizenID from being passed where an OfficialID is expected; the compiler
// enforces what runtime checks cannot.
//
// Construct via the Parse* helpers at trust boundaries; direct casting
// bypasses validation.
type (
	CitizenID      uuid.UUID
	OfficialID     uuid.UUID
	ElectionID     uuid.UUID
	CandidateID    uuid.UUID
	VoteID         uuid.UUID
	RatingID       uuid.UUID
	ReportID       uuid.UUID
	VerificationID uuid.UUID
)

func (id CitizenID) String() string      { return uuid.UUID(id).String() }
func (id OfficialID) String() string     { return uuid.UUID(id).String() }
func (id ElectionID) String() string     { return uuid.UUID(id).String() }
func (id CandidateID) String() string    { return uuid.UUID(id).String() }
func (id VoteID) String() string         { return uuid.UUID(id).String() }
func (id RatingID) String() string       { return uuid.UUID(id).String() }
func (id ReportID) String() string       { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }

// MarshalText renders ids as canonical UUID strings in JSON; UnmarshalText
// accepts only what Parse* would. Defined types do not inherit uuid.UUID's
// methods, so these are spelled out per type.
func (id CitizenID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id OfficialID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ElectionID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id CandidateID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id VoteID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id RatingID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id ReportID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id VerificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CitizenID) UnmarshalText(text []byte) error {
	parsed, err := ParseCitizenID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OfficialID) UnmarshalText(text []byte) error {
	parsed, err := ParseOfficialID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ElectionID) UnmarshalText(text []byte) error {
	parsed, err := ParseElectionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CandidateID) UnmarshalText(text []byte) error {
	parsed, err := ParseCandidateID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VoteID) UnmarshalText(text []byte) error {
	parsed, err := ParseVoteID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RatingID) UnmarshalText(text []byte) error {
	parsed, err := ParseRatingID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ReportID) UnmarshalText(text []byte) error {
	parsed, err := ParseReportID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VerificationID) UnmarshalText(text []byte) error {
	parsed, err := ParseVerificationID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id CitizenID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id OfficialID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ElectionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CandidateID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id VoteID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RatingID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

func ParseCitizenID(raw string) (CitizenID, error) {
	parsed, err := parseUUID(raw, "citizen ID")
	return CitizenID(parsed), err
}

func ParseOfficialID(raw string) (OfficialID, error) {
	parsed, err := parseUUID(raw, "official ID")
	return OfficialID(parsed), err
}

func ParseElectionID(raw string) (ElectionID, error) {
	parsed, err := parseUUID(raw, "election ID")
	return ElectionID(parsed), err
}

func ParseCandidateID(raw string) (CandidateID, error) {
	parsed, err := parseUUID(raw, "candidate ID")
	return CandidateID(parsed), err
}

func ParseReportID(raw string) (ReportID, error) {
	parsed, err := parseUUID(raw, "report ID")
	return ReportID(parsed), err
}

func ParseRatingID(raw string) (RatingID, error) {
	parsed, err := parseUUID(raw, "rating ID")
	return RatingID(parsed), err
}

func ParseVoteID(raw string) (VoteID, error) {
	parsed, err := parseUUID(raw, "vote ID")
	return VoteID(parsed), err
}

func ParseVerificationID(raw string) (VerificationID, error) {
	parsed, err := parseUUID(raw, "verification ID")
	return VerificationID(parsed), err
}
