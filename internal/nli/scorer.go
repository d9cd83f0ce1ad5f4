package nli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/worker"
)

// limiterResource names the classifier's token bucket in the shared limiter.
const limiterResource = "nli"

// outcome is the explicit result of one classifier attempt, consumed by
// the bounded-retry loop: either usable scores, a retryable failure, or a
// fatal one.
type outcome struct {
	scores ClassScores
	retry  error
	fatal  error
}

func evaluate(ctx context.Context, scores ClassScores, err error) outcome {
	switch {
	case err == nil:
		// Contract violations are fatal: retrying a broken classifier
		// just reproduces the violation.
		if verr := scores.Validate(); verr != nil {
			return outcome{fatal: verr}
		}
		return outcome{scores: scores}
	case errors.Is(err, context.Canceled):
		// Caller gave up; nothing to retry against.
		return outcome{fatal: err}
	case ctx.Err() != nil:
		// The scoring context itself is dead, as opposed to a per-call
		// timeout inside the provider. Abandon rather than retry.
		return outcome{fatal: ctx.Err()}
	case errors.Is(err, ErrInvalidClassifierOutput):
		return outcome{fatal: err}
	default:
		// Timeouts, network errors, provider 5xx: transient.
		return outcome{retry: err}
	}
}

// Scorer invokes a classifier per (claim, evidence) pair and normalizes
// its output into a PairwiseEntailment record. Transient failures are
// retried with bounded exponential backoff; exhaustion surfaces
// ErrScoringUnavailable, which callers must treat as a missing record,
// never as NEUTRAL.
type Scorer struct {
	provider Provider
	limiter  *worker.Limiter
	config   model.NLIConfig
	log      *zap.Logger

	// sleep is injectable for tests
	sleep func(time.Duration)
}

// NewScorer creates a scorer around the given provider
func NewScorer(provider Provider, limiter *worker.Limiter, cfg model.NLIConfig, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{
		provider: provider,
		limiter:  limiter,
		config:   cfg,
		log:      log,
		sleep:    time.Sleep,
	}
}

// Score classifies one (claim, evidence) pair. The evidence text is the
// premise, the claim text the hypothesis.
func (s *Scorer) Score(ctx context.Context, claim model.Claim, evidence model.EvidenceDoc) (*model.PairwiseEntailment, error) {
	maxAttempts := s.config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	backoff := s.config.InitialBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, limiterResource); err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return nil, cerr
				}
				return nil, err
			}
		}

		scores, err := s.provider.Classify(ctx, evidence.Text, claim.Text)
		out := evaluate(ctx, scores, err)

		switch {
		case out.fatal != nil:
			if errors.Is(out.fatal, ErrInvalidClassifierOutput) {
				s.log.Error("classifier output contract violated",
					zap.String("claim_id", claim.ID),
					zap.String("evidence_id", evidence.ID),
					zap.Error(out.fatal))
			}
			return nil, out.fatal

		case out.retry != nil:
			lastErr = out.retry
			s.log.Warn("classifier call failed",
				zap.String("claim_id", claim.ID),
				zap.String("evidence_id", evidence.ID),
				zap.Int("attempt", attempt),
				zap.Error(out.retry))
			if attempt < maxAttempts {
				s.sleep(backoff)
				backoff *= 2
			}

		default:
			label, confidence := model.DeriveLabel(out.scores.Entailment, out.scores.Contradiction, out.scores.Neutral)
			return &model.PairwiseEntailment{
				ID:                 uuid.NewString(),
				ClaimID:            claim.ID,
				EvidenceID:         evidence.ID,
				Label:              label,
				Confidence:         confidence,
				EntailmentScore:    out.scores.Entailment,
				ContradictionScore: out.scores.Contradiction,
				NeutralScore:       out.scores.Neutral,
				ModelName:          s.config.Model,
				ModelVersion:       s.config.ModelVersion,
				PremiseText:        evidence.Text,
				HypothesisText:     claim.Text,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrScoringUnavailable, maxAttempts, lastErr)
}
