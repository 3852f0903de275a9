package consensus

// Thresholds for the weighted quorum, in percent of positive weight.
// A report verifies at or above VerifyThreshold, dismisses strictly below
// DismissThreshold, and otherwise stays pending even when the quorum count
// is met.
const (
	VerifyThreshold  = 60.0
	DismissThreshold = 40.0
)

// Ballot is one verification vote: its snapshotted weight and whether the
// voter judged the report valid.
type Ballot struct {
	Weight   float64
	Positive bool
}

// Decision is the outcome of a quorum evaluation.
type Decision int

const (
	// DecisionPending: quorum not reached, or reached with an inconclusive
	// score (DismissThreshold <= score < VerifyThreshold). A report can sit
	// in this state indefinitely.
	DecisionPending Decision = iota
	// DecisionVerify: quorum reached and score >= VerifyThreshold.
	DecisionVerify
	// DecisionDismiss: quorum reached and score < DismissThreshold.
	DecisionDismiss
)

func (d Decision) String() string {
	switch d {
	case DecisionVerify:
		return "verify"
	case DecisionDismiss:
		return "dismiss"
	default:
		return "pending"
	}
}

// Outcome is the recomputed community consensus over the full ballot set.
type Outcome struct {
	// Score is positive weight as a percentage of total weight, 0 when no
	// weight has been cast.
	Score          float64
	Count          int
	PositiveWeight float64
	TotalWeight    float64
	Decision       Decision
}

// WeightedQuorum recomputes the consensus from scratch over all ballots cast
// on a report. requiredCount is the minimum ballot count before any decision
// other than pending is possible.
func WeightedQuorum(ballots []Ballot, requiredCount int) Outcome {
	outcome := Outcome{Count: len(ballots)}
	for _, b := range ballots {
		outcome.TotalWeight += b.Weight
		if b.Positive {
			outcome.PositiveWeight += b.Weight
		}
	}
	if outcome.TotalWeight > 0 {
		outcome.Score = outcome.PositiveWeight / outcome.TotalWeight * 100
	}

	if outcome.Count < requiredCount {
		return outcome
	}
	switch {
	case outcome.Score >= VerifyThreshold:
		outcome.Decision = DecisionVerify
	case outcome.Score < DismissThreshold:
		outcome.Decision = DecisionDismiss
	}
	return outcome
}

// Penalty applied to an official when a corruption report against them is
// verified. The average reputation delta is deliberately not clamped.
const (
	OfficialAvgReputationPenalty = 0.5
	OfficialTransparencyPenalty  = 20.0
)

// EffectKind tags a side effect produced by a state transition.
type EffectKind int

const (
	// EffectPenalizeOfficial decrements the reported official's reputation
	// and transparency scores.
	EffectPenalizeOfficial EffectKind = iota
)

// Effect is a side effect the caller must apply atomically in the same
// transaction as the transition itself. Keeping effects as data keeps the
// decision logic pure and testable.
type Effect struct {
	Kind               EffectKind
	AvgReputationDelta float64
	TransparencyDelta  float64
}

// Effects returns the side effects entailed by the outcome. Only a
// transition to verified penalizes the official; dismissal and pending
// outcomes carry no effects.
func (o Outcome) Effects() []Effect {
	if o.Decision != DecisionVerify {
		return nil
	}
	return []Effect{{
		Kind:               EffectPenalizeOfficial,
		AvgReputationDelta: -OfficialAvgReputationPenalty,
		TransparencyDelta:  -OfficialTransparencyPenalty,
	}}
}
