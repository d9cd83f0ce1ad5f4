// Package bench replays retrieval and aggregation against stored corpora
// to measure latency and recall, and compares benchmark runs across
// versions. Read-only analysis; never touches the live verification path.
package bench

import (
	"fmt"
	"sort"

	"github.com/veracity-io/veracity/internal/model"
)

// Outcome classifies one metric's movement between two runs.
type Outcome string

const (
	OutcomeImprovement Outcome = "improvement"
	OutcomeRegression  Outcome = "regression"
	OutcomeUnchanged   Outcome = "unchanged"
)

// DefaultRegressionThreshold is the fraction by which a metric must worsen
// before it counts as a regression.
const DefaultRegressionThreshold = 0.10

// MetricComparison is the verdict on a single metric.
type MetricComparison struct {
	Name          string  `json:"name"`
	Baseline      float64 `json:"baseline"`
	Current       float64 `json:"current"`
	LowerIsBetter bool    `json:"lower_is_better"`
	Outcome       Outcome `json:"outcome"`
}

// ComparisonReport compares a current benchmark run against a baseline.
type ComparisonReport struct {
	BaselineID string             `json:"baseline_id"`
	CurrentID  string             `json:"current_id"`
	Metrics    []MetricComparison `json:"metrics"`
}

// HasRegression reports whether any metric regressed.
func (r *ComparisonReport) HasRegression() bool {
	for _, m := range r.Metrics {
		if m.Outcome == OutcomeRegression {
			return true
		}
	}
	return false
}

// CompareValues classifies the movement from baseline to current. Any
// strictly better move is an improvement; a worse move counts as a
// regression only when it exceeds threshold as a fraction of baseline.
// A zero baseline can never regress, and improves only when current moves
// off zero in the better direction.
func CompareValues(baseline, current float64, lowerIsBetter bool, threshold float64) Outcome {
	better := current > baseline
	if lowerIsBetter {
		better = current < baseline
	}
	if better {
		return OutcomeImprovement
	}
	if baseline == 0 {
		return OutcomeUnchanged
	}
	worseBy := (baseline - current) / baseline
	if lowerIsBetter {
		worseBy = (current - baseline) / baseline
	}
	if worseBy > threshold {
		return OutcomeRegression
	}
	return OutcomeUnchanged
}

// lowerIsBetter reports metric polarity by name. Latency-like metrics
// improve downward; recall and throughput improve upward.
func lowerIsBetter(metric string) bool {
	switch metric {
	case "latency_ms", "p99_latency_ms", "error_rate":
		return true
	default:
		return false
	}
}

// Compare builds a ComparisonReport over the metrics the two runs share.
// Metrics present in only one run are ignored; runs with disjoint metric
// sets are an error.
func Compare(baseline, current *model.BenchmarkRun, threshold float64) (*ComparisonReport, error) {
	if threshold <= 0 {
		threshold = DefaultRegressionThreshold
	}

	names := make([]string, 0, len(baseline.Metrics))
	for name := range baseline.Metrics {
		if _, ok := current.Metrics[name]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("runs %s and %s share no metrics", baseline.ID, current.ID)
	}
	sort.Strings(names)

	report := &ComparisonReport{BaselineID: baseline.ID, CurrentID: current.ID}
	for _, name := range names {
		lower := lowerIsBetter(name)
		report.Metrics = append(report.Metrics, MetricComparison{
			Name:          name,
			Baseline:      baseline.Metrics[name],
			Current:       current.Metrics[name],
			LowerIsBetter: lower,
			Outcome:       CompareValues(baseline.Metrics[name], current.Metrics[name], lower, threshold),
		})
	}
	return report, nil
}
