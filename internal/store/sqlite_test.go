package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/veracity-io/veracity/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEmbedding_RoundTripExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	emb := &model.Embedding{
		EntityType:   model.EntityEvidence,
		EntityID:     "ev-1",
		Vector:       []float32{0.1, -0.2, 0.30000001, 1e-7},
		ModelName:    "text-embedding-3-small",
		ModelVersion: "1",
		TenantID:     "t1",
	}
	if err := s.UpsertEmbedding(ctx, emb); err != nil {
		t.Fatalf("UpsertEmbedding: %v", err)
	}

	got, err := s.GetEmbedding(ctx, model.EntityEvidence, "ev-1")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if len(got.Vector) != len(emb.Vector) {
		t.Fatalf("Vector length changed: %d", len(got.Vector))
	}
	for i := range emb.Vector {
		if got.Vector[i] != emb.Vector[i] {
			t.Errorf("Component %d drifted: %v != %v", i, got.Vector[i], emb.Vector[i])
		}
	}
	if got.ModelName != emb.ModelName || got.TenantID != emb.TenantID {
		t.Errorf("Metadata lost: %+v", got)
	}
}

func TestEmbedding_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.Embedding{EntityType: model.EntityEvidence, EntityID: "ev-1",
		Vector: []float32{1, 0}, ModelName: "m", ModelVersion: "1", TenantID: "t1"}
	second := &model.Embedding{EntityType: model.EntityEvidence, EntityID: "ev-1",
		Vector: []float32{0, 1}, ModelName: "m", ModelVersion: "2", TenantID: "t1"}

	_ = s.UpsertEmbedding(ctx, first)
	_ = s.UpsertEmbedding(ctx, second)

	all, err := s.ListEmbeddings(ctx, model.EntityEvidence, "t1")
	if err != nil {
		t.Fatalf("ListEmbeddings: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 row after re-embedding, got %d", len(all))
	}
	if all[0].ModelVersion != "2" || all[0].Vector[1] != 1 {
		t.Errorf("Re-embedding did not replace the row: %+v", all[0])
	}
}

func TestNLIResult_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &model.PairwiseEntailment{
		ID:                 "nli-1",
		ClaimID:            "claim-1",
		EvidenceID:         "ev-1",
		Label:              model.LabelContradiction,
		Confidence:         0.7123456789,
		EntailmentScore:    0.1,
		ContradictionScore: 0.7123456789,
		NeutralScore:       0.1876543211,
		ModelName:          "gpt-4o-mini",
		ModelVersion:       "1",
		PremiseText:        "premise",
		HypothesisText:     "hypothesis",
	}
	if err := s.SaveNLIResult(ctx, rec); err != nil {
		t.Fatalf("SaveNLIResult: %v", err)
	}

	got, err := s.GetNLIResults(ctx, "claim-1")
	if err != nil {
		t.Fatalf("GetNLIResults: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}
	if *got[0] != *rec {
		t.Errorf("Round trip changed record:\nsaved  %+v\nloaded %+v", rec, got[0])
	}
}

func TestNLIResult_UniquePerPairAndVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &model.PairwiseEntailment{ID: "nli-1", ClaimID: "c1", EvidenceID: "e1",
		Label: model.LabelNeutral, Confidence: 0.5,
		EntailmentScore: 0.25, ContradictionScore: 0.25, NeutralScore: 0.5,
		ModelName: "m", ModelVersion: "1"}
	b := &model.PairwiseEntailment{ID: "nli-2", ClaimID: "c1", EvidenceID: "e1",
		Label: model.LabelEntailment, Confidence: 0.9,
		EntailmentScore: 0.9, ContradictionScore: 0.05, NeutralScore: 0.05,
		ModelName: "m", ModelVersion: "1"}

	_ = s.SaveNLIResult(ctx, a)
	_ = s.SaveNLIResult(ctx, b)

	got, err := s.GetNLIResults(ctx, "c1")
	if err != nil {
		t.Fatalf("GetNLIResults: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected one record per (claim, evidence, version), got %d", len(got))
	}
	if got[0].ID != "nli-2" {
		t.Errorf("Expected later record to win, got %s", got[0].ID)
	}
}

func TestVerification_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := &model.VerificationResult{
		ID:                      "vr-1",
		ClaimID:                 "claim-1",
		Verdict:                 model.VerdictSupported,
		Confidence:              0.9234567891234,
		SupportScore:            0.81,
		RefuteScore:             0.0123456789,
		NeutralScore:            0.05,
		EvidenceCount:           3,
		SupportingEvidenceCount: 2,
		RefutingEvidenceCount:   0,
		NeutralEvidenceCount:    1,
		Reasoning:               "supported: dominant class support (share 0.9000)",
		NLIResultIDs:            []string{"nli-1", "nli-2", "nli-3"},
		PipelineVersion:         "v1",
		RetrievalMethod:         "ivf-cosine",
		CreatedAt:               time.Now().UTC(),
	}
	if err := s.SaveVerification(ctx, result); err != nil {
		t.Fatalf("SaveVerification: %v", err)
	}

	got, err := s.GetVerification(ctx, "vr-1")
	if err != nil {
		t.Fatalf("GetVerification: %v", err)
	}

	// No precision drift through persistence.
	if got.Verdict != result.Verdict || got.Confidence != result.Confidence {
		t.Errorf("Verdict/confidence drifted: %+v", got)
	}
	if got.SupportScore != result.SupportScore || got.RefuteScore != result.RefuteScore || got.NeutralScore != result.NeutralScore {
		t.Errorf("Scores drifted: %+v", got)
	}
	if got.EvidenceCount != 3 || !got.CountsConsistent() {
		t.Errorf("Counts drifted: %+v", got)
	}
	if len(got.NLIResultIDs) != 3 || got.NLIResultIDs[0] != "nli-1" {
		t.Errorf("NLI result ids drifted: %v", got.NLIResultIDs)
	}
	if !got.CreatedAt.Equal(result.CreatedAt) {
		t.Errorf("CreatedAt drifted: %v != %v", got.CreatedAt, result.CreatedAt)
	}
}

func TestVerification_AppendOnlyAuditTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := model.VerificationResult{
		ClaimID: "claim-1", Verdict: model.VerdictInsufficient,
		Reasoning: "no evidence retrieved", NLIResultIDs: []string{},
		PipelineVersion: "v1", RetrievalMethod: "ivf-cosine",
	}

	first := base
	first.ID = "vr-1"
	first.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := base
	second.ID = "vr-2"
	second.Verdict = model.VerdictSupported
	second.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := s.SaveVerification(ctx, &first); err != nil {
		t.Fatalf("SaveVerification: %v", err)
	}
	if err := s.SaveVerification(ctx, &second); err != nil {
		t.Fatalf("SaveVerification second: %v", err)
	}

	all, err := s.ListVerifications(ctx, "claim-1")
	if err != nil {
		t.Fatalf("ListVerifications: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 audit rows, got %d", len(all))
	}
	if all[0].ID != "vr-1" || all[1].ID != "vr-2" {
		t.Errorf("Audit order wrong: %s, %s", all[0].ID, all[1].ID)
	}
}

func TestCorpusTexts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	claim := model.Claim{ID: "claim-1", TenantID: "t1", Text: "laksa originated in malaysia"}
	doc := model.EvidenceDoc{ID: "ev-1", TenantID: "t1", Text: "laksa is a spicy noodle soup"}

	if err := s.SaveClaim(ctx, claim); err != nil {
		t.Fatalf("SaveClaim: %v", err)
	}
	if err := s.SaveEvidence(ctx, doc); err != nil {
		t.Fatalf("SaveEvidence: %v", err)
	}

	gotClaim, err := s.GetClaim(ctx, "claim-1")
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if gotClaim != claim {
		t.Errorf("Claim round trip: %+v", gotClaim)
	}

	gotDoc, err := s.GetEvidence(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetEvidence: %v", err)
	}
	if gotDoc != doc {
		t.Errorf("Evidence round trip: %+v", gotDoc)
	}

	if _, err := s.GetEvidence(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBenchmarkRun_RoundTripAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &model.BenchmarkRun{
		ID: "run-1", Name: "retrieval-sweep",
		Params:    map[string]int{"lists": 16, "probe_budget": 4, "top_k": 10},
		Metrics:   map[string]float64{"latency_ms": 12.5, "recall": 0.92},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	current := &model.BenchmarkRun{
		ID: "run-2", Name: "retrieval-sweep",
		Params:    map[string]int{"lists": 16, "probe_budget": 8, "top_k": 10},
		Metrics:   map[string]float64{"latency_ms": 18.0, "recall": 0.99},
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := s.SaveBenchmarkRun(ctx, old); err != nil {
		t.Fatalf("SaveBenchmarkRun: %v", err)
	}
	if err := s.SaveBenchmarkRun(ctx, current); err != nil {
		t.Fatalf("SaveBenchmarkRun: %v", err)
	}

	got, err := s.GetBenchmarkRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBenchmarkRun: %v", err)
	}
	if got.Metrics["recall"] != 0.92 || got.Params["lists"] != 16 {
		t.Errorf("Run round trip: %+v", got)
	}

	latest, err := s.LatestBenchmarkRun(ctx, "retrieval-sweep")
	if err != nil {
		t.Fatalf("LatestBenchmarkRun: %v", err)
	}
	if latest.ID != "run-2" {
		t.Errorf("Expected latest run-2, got %s", latest.ID)
	}
}
