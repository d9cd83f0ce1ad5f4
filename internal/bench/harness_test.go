package bench

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/veracity-io/veracity/internal/index"
	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/nli"
	"github.com/veracity-io/veracity/internal/store"
)

const benchDim = 16

func randomVector(rng *rand.Rand) []float32 {
	vec := make([]float32, benchDim)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return vec
}

func populatedIndex(t *testing.T, rng *rand.Rand, n int) *index.Index {
	t.Helper()
	idx, err := index.New(benchDim, 8, 2)
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("ev-%03d", i)
		if err := idx.Upsert(model.EntityEvidence, id, randomVector(rng), "default"); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	return idx
}

func newHarness(t *testing.T, idx *index.Index) (*Harness, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "bench.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewHarness(idx, st, nil), st
}

func TestSweepRetrieval_RecallMonotoneInProbes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	idx := populatedIndex(t, rng, 150)
	h, _ := newHarness(t, idx)

	queries := make([][]float32, 10)
	for i := range queries {
		queries[i] = randomVector(rng)
	}

	points, err := h.SweepRetrieval(context.Background(), "default", queries, 10, []int{8}, []int{1, 2, 4, 8})
	if err != nil {
		t.Fatalf("SweepRetrieval: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("Expected 4 points, got %d", len(points))
	}

	for i := 1; i < len(points); i++ {
		if points[i].Recall < points[i-1].Recall {
			t.Errorf("Recall dropped from %.4f to %.4f when probes rose %d -> %d",
				points[i-1].Recall, points[i].Recall, points[i-1].ProbeBudget, points[i].ProbeBudget)
		}
	}
	last := points[len(points)-1]
	if last.Recall != 1.0 {
		t.Errorf("Probing every cluster should give recall 1.0, got %.4f", last.Recall)
	}
}

func TestSweepRetrieval_RestoresTuning(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	idx := populatedIndex(t, rng, 50)
	h, _ := newHarness(t, idx)

	queries := [][]float32{randomVector(rng)}
	if _, err := h.SweepRetrieval(context.Background(), "default", queries, 5, []int{4, 16}, []int{1, 2}); err != nil {
		t.Fatalf("SweepRetrieval: %v", err)
	}

	lists, probes := idx.Tuning()
	if lists != 8 || probes != 2 {
		t.Errorf("Tuning not restored after sweep: lists=%d probes=%d", lists, probes)
	}
}

func TestSweepRetrieval_EmptyQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	idx := populatedIndex(t, rng, 10)
	h, _ := newHarness(t, idx)

	if _, err := h.SweepRetrieval(context.Background(), "default", nil, 5, []int{4}, []int{1}); err == nil {
		t.Error("Expected error for empty query set")
	}
}

func TestRecordSweep_FirstRunHasNoReport(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	idx := populatedIndex(t, rng, 20)
	h, st := newHarness(t, idx)

	points := []SweepPoint{
		{Lists: 8, ProbeBudget: 2, TopK: 10, Recall: 0.90, LatencyMS: 1.5},
		{Lists: 8, ProbeBudget: 4, TopK: 10, Recall: 0.97, LatencyMS: 2.5},
	}
	run, report, err := h.RecordSweep(context.Background(), "retrieval-sweep", points, 0.1)
	if err != nil {
		t.Fatalf("RecordSweep: %v", err)
	}
	if report != nil {
		t.Error("First run should have no baseline report")
	}
	if run.Metrics["recall"] != 0.97 || run.Params["probe_budget"] != 4 {
		t.Errorf("Best point not recorded: %+v", run)
	}

	stored, err := st.LatestBenchmarkRun(context.Background(), "retrieval-sweep")
	if err != nil {
		t.Fatalf("LatestBenchmarkRun: %v", err)
	}
	if stored.ID != run.ID {
		t.Errorf("Run not persisted as latest: %s != %s", stored.ID, run.ID)
	}
}

func TestRecordSweep_SecondRunComparesToFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	idx := populatedIndex(t, rng, 20)
	h, _ := newHarness(t, idx)

	first := []SweepPoint{{Lists: 8, ProbeBudget: 4, TopK: 10, Recall: 0.97, LatencyMS: 2.0}}
	second := []SweepPoint{{Lists: 8, ProbeBudget: 4, TopK: 10, Recall: 0.60, LatencyMS: 2.0}}

	if _, _, err := h.RecordSweep(context.Background(), "retrieval-sweep", first, 0.1); err != nil {
		t.Fatalf("First RecordSweep: %v", err)
	}
	_, report, err := h.RecordSweep(context.Background(), "retrieval-sweep", second, 0.1)
	if err != nil {
		t.Fatalf("Second RecordSweep: %v", err)
	}
	if report == nil {
		t.Fatal("Expected a comparison report for the second run")
	}
	if !report.HasRegression() {
		t.Errorf("Recall 0.97 -> 0.60 should regress: %+v", report.Metrics)
	}
}

func TestCheckBatchInvariance_MockProvider(t *testing.T) {
	pairs := [][2]string{
		{"laksa is a spicy noodle soup", "laksa is a soup"},
		{"the sky is blue", "the sky is not blue"},
		{"helsinki is in finland", "oslo is in norway"},
	}
	if err := CheckBatchInvariance(context.Background(), nli.NewMockProvider(), pairs); err != nil {
		t.Errorf("Mock provider should be batch invariant: %v", err)
	}
}
