package model

import "time"

// Verdict is the final claim-level outcome
type Verdict string

const (
	VerdictSupported    Verdict = "SUPPORTED"
	VerdictRefuted      Verdict = "REFUTED"
	VerdictInsufficient Verdict = "INSUFFICIENT"
	VerdictConflicting  Verdict = "CONFLICTING"
)

// VerificationResult aggregates all pairwise entailment records for one
// claim into a single verdict. Rows are append-only: recomputation after
// evidence or model changes inserts a new row and keeps the old one for
// audit.
type VerificationResult struct {
	ID      string  `json:"id"`
	ClaimID string  `json:"claim_id"`
	Verdict Verdict `json:"verdict"`

	// Confidence of the verdict, 0-1.
	Confidence float64 `json:"confidence"`

	// Weighted aggregates per class, normalized by evidence count.
	// Non-negative; need not sum to 1.
	SupportScore float64 `json:"support_score"`
	RefuteScore  float64 `json:"refute_score"`
	NeutralScore float64 `json:"neutral_score"`

	EvidenceCount           int `json:"evidence_count"`
	SupportingEvidenceCount int `json:"supporting_evidence_count"`
	RefutingEvidenceCount   int `json:"refuting_evidence_count"`
	NeutralEvidenceCount    int `json:"neutral_evidence_count"`

	// Reasoning is a deterministic derivation trace, reproducible from
	// the numeric fields alone.
	Reasoning string `json:"reasoning"`

	// NLIResultIDs lists contributing pairwise records in evidence-id
	// order.
	NLIResultIDs []string `json:"nli_result_ids"`

	PipelineVersion string    `json:"pipeline_version"`
	RetrievalMethod string    `json:"retrieval_method"`
	CreatedAt       time.Time `json:"created_at"`
}

// CountsConsistent reports whether the per-label counts sum to the
// evidence count.
func (r *VerificationResult) CountsConsistent() bool {
	return r.SupportingEvidenceCount+r.RefutingEvidenceCount+r.NeutralEvidenceCount == r.EvidenceCount
}
