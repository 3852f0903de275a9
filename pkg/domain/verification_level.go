package domain

import dErrors "civitas/pkg/domain-errors"

// VerificationLevel is the ordered trust tier of a citizen. It gates which
// engine operations a citizen may perform and feeds the influence weight of
// their ratings and verifications.
//
// Ordering invariant: Basic < Verified < Trusted < Guardian.
type VerificationLevel string

const (
	LevelBasic    VerificationLevel = "BASIC"
	LevelVerified VerificationLevel = "VERIFIED"
	LevelTrusted  VerificationLevel = "TRUSTED"
	LevelGuardian VerificationLevel = "GUARDIAN"
)

// levelRank is the single source of truth for tier ordering. Unknown levels
// rank below BASIC so they never satisfy a gate.
var levelRank = map[VerificationLevel]int{
	LevelBasic:    1,
	LevelVerified: 2,
	LevelTrusted:  3,
	LevelGuardian: 4,
}

// ParseVerificationLevel constructs a VerificationLevel from external input,
// enforcing the allowlist.
func ParseVerificationLevel(raw string) (VerificationLevel, error) {
	level := VerificationLevel(raw)
	if _, ok := levelRank[level]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown verification level: "+raw)
	}
	return level, nil
}

// AtLeast reports whether the level meets or exceeds the given tier.
func (l VerificationLevel) AtLeast(min VerificationLevel) bool {
	return levelRank[l] >= levelRank[min]
}

func (l VerificationLevel) IsValid() bool {
	_, ok := levelRank[l]
	return ok
}

func (l VerificationLevel) String() string { return string(l) }
