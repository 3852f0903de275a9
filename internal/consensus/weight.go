// Package consensus holds the pure computation shared by the reputation and
// report engines: influence weights, weighted averages, and the weighted
// quorum that drives corruption-report outcomes. No I/O, no clocks; callers
// snapshot results at write time.
package consensus

import (
	id "civitas/pkg/domain"
)

const baseWeight = 1.0

// reputationWeightCap bounds how much influence a high reputation score can
// buy: score/1000, clamped to 2x.
const reputationWeightCap = 2.0

// verificationMultipliers is the fixed lookup for the general weight model.
// Unknown levels fall back to 1.0.
var verificationMultipliers = map[id.VerificationLevel]float64{
	id.LevelBasic:    1.0,
	id.LevelVerified: 1.2,
	id.LevelTrusted:  1.5,
	id.LevelGuardian: 2.0,
}

// RatingWeight maps a citizen's trust attributes to the influence weight of
// their rating. The weight is snapshotted when the rating is written; later
// changes to the citizen's score or level do not retroactively alter it.
func RatingWeight(reputationScore int, level id.VerificationLevel) float64 {
	reputationMultiplier := float64(reputationScore) / 1000
	if reputationMultiplier > reputationWeightCap {
		reputationMultiplier = reputationWeightCap
	}
	verificationMultiplier, ok := verificationMultipliers[level]
	if !ok {
		verificationMultiplier = 1.0
	}
	return baseWeight * reputationMultiplier * verificationMultiplier
}

// VerificationWeight maps a citizen's verification level to the weight of
// their report verification. Unlike RatingWeight it deliberately ignores the
// reputation score: report verification is gated to TRUSTED and GUARDIAN
// citizens, and only the tier counts.
func VerificationWeight(level id.VerificationLevel) float64 {
	if level == id.LevelGuardian {
		return 2.0
	}
	return 1.0
}

// WeightedValue pairs a sample with its snapshotted weight.
type WeightedValue struct {
	Value  float64
	Weight float64
}

// WeightedAverage folds the full sample set into Σ(value×weight)/Σ(weight).
// When the total weight is zero (no samples, or only zero-weight samples)
// it returns fallback instead of dividing by zero.
func WeightedAverage(values []WeightedValue, fallback float64) float64 {
	var weightedSum, totalWeight float64
	for _, v := range values {
		weightedSum += v.Value * v.Weight
		totalWeight += v.Weight
	}
	if totalWeight <= 0 {
		return fallback
	}
	return weightedSum / totalWeight
}
