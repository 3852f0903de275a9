package consensus

// Reputation bonuses awarded to the acting citizen, one fixed constant per
// operation type. Always applied as a relative increment to tolerate
// concurrent operations touching the same citizen.
const (
	BonusRating              = 5
	BonusVote                = 10
	BonusVerificationValid   = 20
	BonusVerificationInvalid = 10
)

// VerificationBonus returns the bonus for casting a report verification.
// Judging a report valid pays more than judging it invalid.
func VerificationBonus(isValid bool) int {
	if isValid {
		return BonusVerificationValid
	}
	return BonusVerificationInvalid
}
