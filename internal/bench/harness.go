package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veracity-io/veracity/internal/index"
	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/nli"
	"github.com/veracity-io/veracity/internal/store"
)

// Harness replays similarity queries against a live index to measure
// recall and latency across tuning settings. It owns the index for the
// duration of a sweep; SetTuning reclusters, so never aim it at an index
// serving live traffic.
type Harness struct {
	index *index.Index
	store store.Store
	log   *zap.Logger
}

// NewHarness creates a benchmark harness.
func NewHarness(idx *index.Index, st store.Store, log *zap.Logger) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{index: idx, store: st, log: log}
}

// SweepPoint is one measured (lists, probe_budget) setting.
type SweepPoint struct {
	Lists       int     `json:"lists"`
	ProbeBudget int     `json:"probe_budget"`
	TopK        int     `json:"top_k"`
	Recall      float64 `json:"recall"`
	LatencyMS   float64 `json:"latency_ms"`
}

// SweepRetrieval measures recall against exhaustive search and mean query
// latency for every (lists, probe_budget) combination. Recall for a query
// is the overlap between its approximate top-K and the exhaustive top-K,
// divided by the exhaustive result size, averaged over queries.
func (h *Harness) SweepRetrieval(ctx context.Context, tenantID string, queries [][]float32, topK int, listsOptions, probeOptions []int) ([]SweepPoint, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries to replay")
	}

	origLists, origProbes := h.index.Tuning()
	defer func() {
		_ = h.index.SetTuning(origLists, origProbes)
	}()

	var points []SweepPoint
	for _, lists := range listsOptions {
		if err := h.index.SetTuning(lists, 1); err != nil {
			return nil, fmt.Errorf("set lists=%d: %w", lists, err)
		}

		// Ground truth per query: probing every cluster is exhaustive.
		truth := make([][]index.Hit, len(queries))
		for i, q := range queries {
			hits, err := h.index.Query(q, model.EntityEvidence, tenantID, topK, lists)
			if err != nil {
				return nil, fmt.Errorf("exhaustive query: %w", err)
			}
			truth[i] = hits
		}

		for _, probes := range probeOptions {
			if probes > lists {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			var recallSum float64
			counted := 0
			start := time.Now()
			for i, q := range queries {
				hits, err := h.index.Query(q, model.EntityEvidence, tenantID, topK, probes)
				if err != nil {
					return nil, fmt.Errorf("query at probes=%d: %w", probes, err)
				}
				if len(truth[i]) == 0 {
					continue
				}
				recallSum += overlap(truth[i], hits) / float64(len(truth[i]))
				counted++
			}
			elapsed := time.Since(start)

			point := SweepPoint{
				Lists:       lists,
				ProbeBudget: probes,
				TopK:        topK,
				LatencyMS:   float64(elapsed.Microseconds()) / 1000.0 / float64(len(queries)),
			}
			if counted > 0 {
				point.Recall = recallSum / float64(counted)
			}
			points = append(points, point)

			h.log.Debug("sweep point",
				zap.Int("lists", lists),
				zap.Int("probe_budget", probes),
				zap.Float64("recall", point.Recall),
				zap.Float64("latency_ms", point.LatencyMS))
		}
	}
	return points, nil
}

func overlap(truth, got []index.Hit) float64 {
	ids := make(map[string]bool, len(truth))
	for _, h := range truth {
		ids[h.EntityID] = true
	}
	n := 0
	for _, h := range got {
		if ids[h.EntityID] {
			n++
		}
	}
	return float64(n)
}

// RecordSweep persists the best-recall point of a sweep as a named
// benchmark run and compares it against the previous run of the same
// name. The report is nil when no earlier run exists.
func (h *Harness) RecordSweep(ctx context.Context, name string, points []SweepPoint, threshold float64) (*model.BenchmarkRun, *ComparisonReport, error) {
	if len(points) == 0 {
		return nil, nil, fmt.Errorf("empty sweep")
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Recall > best.Recall || (p.Recall == best.Recall && p.LatencyMS < best.LatencyMS) {
			best = p
		}
	}

	run := &model.BenchmarkRun{
		ID:   uuid.NewString(),
		Name: name,
		Params: map[string]int{
			"lists":        best.Lists,
			"probe_budget": best.ProbeBudget,
			"top_k":        best.TopK,
		},
		Metrics: map[string]float64{
			"recall":     best.Recall,
			"latency_ms": best.LatencyMS,
		},
		CreatedAt: time.Now().UTC(),
	}

	// Compare against the previous run of this name before the new run
	// becomes the latest.
	var report *ComparisonReport
	baseline, err := h.store.LatestBenchmarkRun(ctx, run.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// First run under this name becomes the baseline.
	case err != nil:
		return nil, nil, fmt.Errorf("load baseline: %w", err)
	default:
		report, err = Compare(baseline, run, threshold)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := h.store.SaveBenchmarkRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("save run: %w", err)
	}
	return run, report, nil
}

// CheckBatchInvariance verifies that a classifier's output for a pair does
// not depend on which other pairs were scored around it: each pair is
// classified alone and inside the full set, and the scores must match
// exactly.
func CheckBatchInvariance(ctx context.Context, provider nli.Provider, pairs [][2]string) error {
	alone := make([]nli.ClassScores, len(pairs))
	for i, p := range pairs {
		scores, err := provider.Classify(ctx, p[0], p[1])
		if err != nil {
			return fmt.Errorf("classify pair %d alone: %w", i, err)
		}
		alone[i] = scores
	}

	// Reverse order, interleaved with every other pair.
	for i := len(pairs) - 1; i >= 0; i-- {
		scores, err := provider.Classify(ctx, pairs[i][0], pairs[i][1])
		if err != nil {
			return fmt.Errorf("classify pair %d batched: %w", i, err)
		}
		if scores != alone[i] {
			return fmt.Errorf("pair %d scores depend on batch context: alone %+v, batched %+v", i, alone[i], scores)
		}
	}
	return nil
}
