package nli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/veracity-io/veracity/internal/model"
)

// scriptedProvider returns canned responses in sequence
type scriptedProvider struct {
	responses []func() (ClassScores, error)
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Classify(ctx context.Context, premise, hypothesis string) (ClassScores, error) {
	if p.calls >= len(p.responses) {
		return ClassScores{}, fmt.Errorf("no scripted response for call %d", p.calls)
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp()
}

func newTestScorer(p Provider, maxAttempts int) *Scorer {
	s := NewScorer(p, nil, model.NLIConfig{
		Model:          "test-nli",
		ModelVersion:   "1",
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
	}, nil)
	s.sleep = func(time.Duration) {}
	return s
}

var (
	testClaim    = model.Claim{ID: "claim-1", TenantID: "t1", Text: "laksa originated in malaysia"}
	testEvidence = model.EvidenceDoc{ID: "ev-1", TenantID: "t1", Text: "laksa is a dish from malaysia"}
)

func TestScorer_Success(t *testing.T) {
	p := &scriptedProvider{responses: []func() (ClassScores, error){
		func() (ClassScores, error) {
			return ClassScores{Entailment: 0.8, Contradiction: 0.1, Neutral: 0.1}, nil
		},
	}}

	rec, err := newTestScorer(p, 3).Score(context.Background(), testClaim, testEvidence)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if rec.Label != model.LabelEntailment {
		t.Errorf("Expected ENTAILMENT, got %s", rec.Label)
	}
	if rec.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %f", rec.Confidence)
	}
	if rec.ClaimID != "claim-1" || rec.EvidenceID != "ev-1" {
		t.Errorf("Record ids wrong: %s/%s", rec.ClaimID, rec.EvidenceID)
	}
	if rec.ID == "" {
		t.Error("Expected record id to be assigned")
	}
	if rec.PremiseText != testEvidence.Text || rec.HypothesisText != testClaim.Text {
		t.Error("Premise/hypothesis texts not carried through")
	}
}

func TestScorer_RetriesTransientThenSucceeds(t *testing.T) {
	p := &scriptedProvider{responses: []func() (ClassScores, error){
		func() (ClassScores, error) { return ClassScores{}, errors.New("connection reset") },
		func() (ClassScores, error) { return ClassScores{}, errors.New("timeout") },
		func() (ClassScores, error) {
			return ClassScores{Entailment: 0.1, Contradiction: 0.7, Neutral: 0.2}, nil
		},
	}}

	rec, err := newTestScorer(p, 3).Score(context.Background(), testClaim, testEvidence)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", p.calls)
	}
	if rec.Label != model.LabelContradiction {
		t.Errorf("Expected CONTRADICTION, got %s", rec.Label)
	}
}

func TestScorer_ExhaustionSurfacesScoringUnavailable(t *testing.T) {
	p := &scriptedProvider{responses: []func() (ClassScores, error){
		func() (ClassScores, error) { return ClassScores{}, errors.New("down") },
		func() (ClassScores, error) { return ClassScores{}, errors.New("down") },
		func() (ClassScores, error) { return ClassScores{}, errors.New("down") },
	}}

	_, err := newTestScorer(p, 3).Score(context.Background(), testClaim, testEvidence)
	if !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("Expected ErrScoringUnavailable, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", p.calls)
	}
}

func TestScorer_InvalidOutputIsFatalNotRetried(t *testing.T) {
	cases := []ClassScores{
		{Entailment: 0.5, Contradiction: 0.5, Neutral: 0.5}, // sums to 1.5
		{Entailment: -0.1, Contradiction: 0.6, Neutral: 0.5},
		{Entailment: 0.2, Contradiction: 0.2, Neutral: 0.2}, // sums to 0.6
	}

	for i, scores := range cases {
		scores := scores
		p := &scriptedProvider{responses: []func() (ClassScores, error){
			func() (ClassScores, error) { return scores, nil },
			func() (ClassScores, error) {
				return ClassScores{Entailment: 1, Contradiction: 0, Neutral: 0}, nil
			},
		}}

		_, err := newTestScorer(p, 3).Score(context.Background(), testClaim, testEvidence)
		if !errors.Is(err, ErrInvalidClassifierOutput) {
			t.Errorf("case %d: expected ErrInvalidClassifierOutput, got %v", i, err)
		}
		if p.calls != 1 {
			t.Errorf("case %d: invalid output must not be retried, got %d calls", i, p.calls)
		}
	}
}

func TestScorer_ToleratesEpsilonSum(t *testing.T) {
	p := &scriptedProvider{responses: []func() (ClassScores, error){
		func() (ClassScores, error) {
			return ClassScores{Entailment: 0.3335, Contradiction: 0.3335, Neutral: 0.3335}, nil
		},
	}}

	rec, err := newTestScorer(p, 1).Score(context.Background(), testClaim, testEvidence)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// Raw scores are kept exactly as returned, never renormalized.
	if rec.EntailmentScore != 0.3335 {
		t.Errorf("Raw score was altered: %f", rec.EntailmentScore)
	}
}

func TestScorer_CancellationIsFatal(t *testing.T) {
	p := &scriptedProvider{responses: []func() (ClassScores, error){
		func() (ClassScores, error) { return ClassScores{}, context.Canceled },
	}}

	_, err := newTestScorer(p, 3).Score(context.Background(), testClaim, testEvidence)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if p.calls != 1 {
		t.Errorf("Cancellation must not be retried, got %d calls", p.calls)
	}
}

func TestMockProvider_DeterministicAndValid(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	a, err := p.Classify(ctx, "laksa is a dish from malaysia", "laksa originated in malaysia")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	b, _ := p.Classify(ctx, "laksa is a dish from malaysia", "laksa originated in malaysia")
	if a != b {
		t.Error("Mock classifier not deterministic")
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Mock scores violate contract: %v", err)
	}
	if a.Entailment <= a.Contradiction {
		t.Errorf("Expected overlap to read as entailment, got %+v", a)
	}
}

func TestMockProvider_Negation(t *testing.T) {
	p := NewMockProvider()
	scores, err := p.Classify(context.Background(), "laksa did not originate in malaysia", "laksa originated in malaysia")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if err := scores.Validate(); err != nil {
		t.Errorf("Mock scores violate contract: %v", err)
	}
	if scores.Contradiction <= scores.Entailment {
		t.Errorf("Expected negated premise to read as contradiction, got %+v", scores)
	}
}

func TestParseClassScores(t *testing.T) {
	scores, err := parseClassScores(`{"entailment": 0.7, "contradiction": 0.2, "neutral": 0.1}`)
	if err != nil {
		t.Fatalf("parseClassScores: %v", err)
	}
	if scores.Entailment != 0.7 || scores.Contradiction != 0.2 || scores.Neutral != 0.1 {
		t.Errorf("Parsed scores wrong: %+v", scores)
	}

	if _, err := parseClassScores("not json"); !errors.Is(err, ErrInvalidClassifierOutput) {
		t.Errorf("Expected ErrInvalidClassifierOutput for garbage, got %v", err)
	}
}
