package model

import "math"

// Label is the three-way relationship a classifier assigns between a
// premise (evidence) and a hypothesis (claim)
type Label string

const (
	LabelEntailment    Label = "ENTAILMENT"
	LabelContradiction Label = "CONTRADICTION"
	LabelNeutral       Label = "NEUTRAL"
)

// ScoreSumTolerance is the allowed deviation of the three class scores
// from summing to exactly 1.0
const ScoreSumTolerance = 1e-3

// PairwiseEntailment is one classifier invocation for a (claim, evidence)
// pair. Exactly one exists per (claim_id, evidence_id) per model version.
// Rows are written once and never mutated.
type PairwiseEntailment struct {
	ID         string `json:"id"`
	ClaimID    string `json:"claim_id"`
	EvidenceID string `json:"evidence_id"`

	// Label is the argmax class; Confidence its probability.
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`

	// Raw class scores. Must be non-negative and sum to 1 within
	// ScoreSumTolerance; Label/Confidence are derived from them.
	EntailmentScore    float64 `json:"entailment_score"`
	ContradictionScore float64 `json:"contradiction_score"`
	NeutralScore       float64 `json:"neutral_score"`

	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`

	PremiseText    string `json:"premise_text,omitempty"`
	HypothesisText string `json:"hypothesis_text,omitempty"`
}

// DeriveLabel computes the argmax label and its probability from the three
// raw class scores. Ties resolve in the fixed order entailment,
// contradiction, neutral so derivation is deterministic.
func DeriveLabel(entailment, contradiction, neutral float64) (Label, float64) {
	label := LabelEntailment
	max := entailment
	if contradiction > max {
		label = LabelContradiction
		max = contradiction
	}
	if neutral > max {
		label = LabelNeutral
		max = neutral
	}
	return label, max
}

// ScoresSumValid reports whether the three class scores are non-negative
// and sum to 1 within tolerance.
func ScoresSumValid(entailment, contradiction, neutral float64) bool {
	if entailment < 0 || contradiction < 0 || neutral < 0 {
		return false
	}
	return math.Abs(entailment+contradiction+neutral-1.0) <= ScoreSumTolerance
}
