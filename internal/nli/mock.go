package nli

import (
	"context"
	"strings"
)

// MockProvider is a deterministic lexical-overlap classifier for tests and
// offline runs. High token overlap between premise and hypothesis reads as
// entailment, overlap plus negation as contradiction, low overlap as
// neutral. Same pair always yields the same scores.
type MockProvider struct{}

// NewMockProvider creates a new mock classifier
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return "mock"
}

// Classify scores one (premise, hypothesis) pair by token overlap
func (p *MockProvider) Classify(ctx context.Context, premise, hypothesis string) (ClassScores, error) {
	if err := ctx.Err(); err != nil {
		return ClassScores{}, err
	}

	hypTokens := tokens(hypothesis)
	if len(hypTokens) == 0 {
		return ClassScores{Entailment: 0.05, Contradiction: 0.05, Neutral: 0.90}, nil
	}

	premTokens := tokens(premise)
	matched := 0
	for tok := range hypTokens {
		if premTokens[tok] {
			matched++
		}
	}
	r := float64(matched) / float64(len(hypTokens))

	agree := 0.10 + 0.80*r
	other := 0.05 * (1 - r)
	rest := 1 - agree - 2*other

	negated := premTokens["not"] != hypTokens["not"] ||
		premTokens["no"] != hypTokens["no"] ||
		premTokens["never"] != hypTokens["never"]
	if negated {
		return ClassScores{Entailment: other, Contradiction: agree, Neutral: rest + other}, nil
	}
	return ClassScores{Entailment: agree, Contradiction: other, Neutral: rest + other}, nil
}

func tokens(text string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		out[strings.Trim(tok, ".,;:!?\"'()")] = true
	}
	return out
}
