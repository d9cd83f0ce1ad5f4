// Package nli adapts external entailment classifiers. The classifier
// itself is an external collaborator; this package owns the adapter
// contract: output validation, bounded retry, and normalization into
// pairwise entailment records.
package nli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/veracity-io/veracity/internal/model"
)

var (
	// ErrInvalidClassifierOutput marks an upstream contract violation:
	// negative class scores or scores not summing to 1. Never corrected
	// silently, so classifier bugs surface immediately.
	ErrInvalidClassifierOutput = errors.New("invalid classifier output")

	// ErrScoringUnavailable marks a transient classifier failure that
	// survived all retries.
	ErrScoringUnavailable = errors.New("entailment scoring unavailable")
)

// ClassScores are the raw three-way probabilities a classifier assigns to
// a (premise, hypothesis) pair.
type ClassScores struct {
	Entailment    float64
	Contradiction float64
	Neutral       float64
}

// Validate checks the classifier output contract: non-negative scores
// summing to 1 within tolerance.
func (s ClassScores) Validate() error {
	if !model.ScoresSumValid(s.Entailment, s.Contradiction, s.Neutral) {
		return fmt.Errorf("%w: scores (%f, %f, %f) must be non-negative and sum to 1±%g",
			ErrInvalidClassifierOutput, s.Entailment, s.Contradiction, s.Neutral, model.ScoreSumTolerance)
	}
	return nil
}

// Provider defines the interface for entailment classifier backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Classify scores one (premise, hypothesis) pair. Implementations
	// must keep pairs independent: the result for a pair never depends
	// on what else was in flight.
	Classify(ctx context.Context, premise, hypothesis string) (ClassScores, error)
}

// NewProvider creates a classifier backend from configuration
func NewProvider(cfg model.NLIConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "mock":
		return NewMockProvider(), nil

	default:
		return nil, fmt.Errorf("unknown NLI provider: %s (supported: openai, mock)", cfg.Provider)
	}
}
