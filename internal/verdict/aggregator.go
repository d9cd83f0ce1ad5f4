// Package verdict combines pairwise entailment records for a claim into a
// single verdict with confidence and supporting statistics.
package verdict

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/veracity-io/veracity/internal/model"
)

// Aggregator reduces a claim's pairwise entailment records to one
// VerificationResult. It is pure: same records in, bit-identical result
// out, regardless of input order. Lack of evidence or low confidence are
// valid outputs here, never errors.
type Aggregator struct {
	config          model.AggregationConfig
	pipelineVersion string
	retrievalMethod string
}

// NewAggregator creates an aggregator. Zero-valued thresholds fall back to
// the documented defaults.
func NewAggregator(cfg model.AggregationConfig, pipelineVersion, retrievalMethod string) *Aggregator {
	if cfg.AcceptanceThreshold <= 0 {
		cfg.AcceptanceThreshold = model.DefaultAcceptanceThreshold
	}
	if cfg.SignificanceFloor <= 0 {
		cfg.SignificanceFloor = model.DefaultSignificanceFloor
	}
	if cfg.BalanceRatio <= 0 {
		cfg.BalanceRatio = model.DefaultBalanceRatio
	}
	return &Aggregator{
		config:          cfg,
		pipelineVersion: pipelineVersion,
		retrievalMethod: retrievalMethod,
	}
}

// Aggregate produces the verification result for claimID from the records
// actually obtained (scoring failures have already been dropped by the
// caller). The result's ID and CreatedAt are left for the persistence
// layer to stamp, keeping this reduction deterministic.
func (a *Aggregator) Aggregate(claimID string, records []model.PairwiseEntailment) *model.VerificationResult {
	result := &model.VerificationResult{
		ClaimID:         claimID,
		PipelineVersion: a.pipelineVersion,
		RetrievalMethod: a.retrievalMethod,
	}

	if len(records) == 0 {
		result.Verdict = model.VerdictInsufficient
		result.Reasoning = BuildReasoning(result)
		return result
	}

	// Fix the reduction order so float accumulation is identical for any
	// input permutation. Evidence ids are unique per claim.
	sorted := make([]model.PairwiseEntailment, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EvidenceID < sorted[j].EvidenceID })

	evidenceCount := len(sorted)
	result.EvidenceCount = evidenceCount
	result.NLIResultIDs = make([]string, 0, evidenceCount)

	var support, refute, neutral float64
	for _, rec := range sorted {
		result.NLIResultIDs = append(result.NLIResultIDs, rec.ID)
		// Weight each record by the classifier's own certainty: shaky
		// classifications contribute less than confident ones.
		weight := rec.Confidence
		switch rec.Label {
		case model.LabelEntailment:
			support += weight * rec.EntailmentScore
			result.SupportingEvidenceCount++
		case model.LabelContradiction:
			refute += weight * rec.ContradictionScore
			result.RefutingEvidenceCount++
		case model.LabelNeutral:
			neutral += weight * rec.NeutralScore
			result.NeutralEvidenceCount++
		}
	}

	// Normalize by evidence count so scores are comparable across claims
	// with differing amounts of evidence.
	n := float64(evidenceCount)
	result.SupportScore = support / n
	result.RefuteScore = refute / n
	result.NeutralScore = neutral / n

	result.Verdict, result.Confidence = a.decide(result)
	result.Reasoning = BuildReasoning(result)
	return result
}

// decide applies the decision policy in order; first match wins.
func (a *Aggregator) decide(r *model.VerificationResult) (model.Verdict, float64) {
	supCount := r.SupportingEvidenceCount
	refCount := r.RefutingEvidenceCount

	if supCount > 0 && refCount > 0 &&
		a.balanced(supCount, refCount) &&
		r.SupportScore > a.config.SignificanceFloor &&
		r.RefuteScore > a.config.SignificanceFloor {
		return model.VerdictConflicting, clamp01(1 - math.Abs(r.SupportScore-r.RefuteScore))
	}

	total := r.SupportScore + r.RefuteScore + r.NeutralScore
	if r.SupportScore > r.RefuteScore && r.SupportScore > a.config.AcceptanceThreshold {
		return model.VerdictSupported, r.SupportScore / total
	}
	if r.RefuteScore > r.SupportScore && r.RefuteScore > a.config.AcceptanceThreshold {
		return model.VerdictRefuted, r.RefuteScore / total
	}

	return model.VerdictInsufficient, math.Max(r.NeutralScore/float64(r.EvidenceCount), 0)
}

// balanced reports whether neither count exceeds the other by more than
// the configured ratio.
func (a *Aggregator) balanced(supCount, refCount int) bool {
	hi, lo := supCount, refCount
	if refCount > supCount {
		hi, lo = refCount, supCount
	}
	return float64(hi) <= a.config.BalanceRatio*float64(lo)
}

// BuildReasoning renders the derivation trace from the result's numeric
// fields alone, so it can be regenerated and compared at any time.
func BuildReasoning(r *model.VerificationResult) string {
	if r.EvidenceCount == 0 {
		return "no evidence retrieved"
	}

	dominant, share := dominantClass(r)
	return fmt.Sprintf(
		"%s: dominant class %s (share %.4f); %d supporting, %d refuting, %d neutral of %d evidence items; support=%.4f refute=%.4f neutral=%.4f confidence=%.4f",
		strings.ToLower(string(r.Verdict)), dominant, share,
		r.SupportingEvidenceCount, r.RefutingEvidenceCount, r.NeutralEvidenceCount, r.EvidenceCount,
		r.SupportScore, r.RefuteScore, r.NeutralScore, r.Confidence,
	)
}

func dominantClass(r *model.VerificationResult) (string, float64) {
	name := "support"
	best := r.SupportScore
	if r.RefuteScore > best {
		name = "refute"
		best = r.RefuteScore
	}
	if r.NeutralScore > best {
		name = "neutral"
		best = r.NeutralScore
	}
	total := r.SupportScore + r.RefuteScore + r.NeutralScore
	if total == 0 {
		return name, 0
	}
	return name, best / total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
