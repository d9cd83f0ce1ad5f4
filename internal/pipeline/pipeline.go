package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veracity-io/veracity/internal/embed"
	"github.com/veracity-io/veracity/internal/index"
	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/nli"
	"github.com/veracity-io/veracity/internal/retrieve"
	"github.com/veracity-io/veracity/internal/store"
	"github.com/veracity-io/veracity/internal/verdict"
)

// ErrDeadlineExceeded is returned when a verification run hits its deadline
// and the on_deadline policy is "fail".
var ErrDeadlineExceeded = errors.New("verification deadline exceeded")

// Verifier orchestrates the complete verification of one claim:
// embed, retrieve, score each pair, aggregate, persist.
type Verifier struct {
	embedder   embed.Embedder
	retriever  *retrieve.Retriever
	scorer     *nli.Scorer
	aggregator *verdict.Aggregator
	store      store.Store
	config     *model.Config
	log        *zap.Logger
}

// NewVerifier creates a verifier over already-constructed collaborators.
func NewVerifier(embedder embed.Embedder, idx *index.Index, scorer *nli.Scorer, st store.Store, cfg *model.Config, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{
		embedder:   embedder,
		retriever:  retrieve.NewRetriever(idx, log),
		scorer:     scorer,
		aggregator: verdict.NewAggregator(cfg.Aggregation, cfg.Pipeline.Version, retrieve.Method),
		store:      st,
		config:     cfg,
		log:        log,
	}
}

// pairScore is the result of scoring one (claim, evidence) pair. Pairs
// whose scoring exhausted retries carry no record and are dropped from
// aggregation; fatal errors abort the whole run.
type pairScore struct {
	record *model.PairwiseEntailment
	err    error
}

// VerifyClaim runs the full pipeline for one claim text and returns the
// persisted verification result. The run as a whole is bounded by the
// configured deadline; cancellation discards all partial work.
func (v *Verifier) VerifyClaim(ctx context.Context, claimText string) (*model.VerificationResult, error) {
	// Record when our own deadline expires so it can be told apart from a
	// deadline the caller's context carried in.
	var ownDeadline time.Time
	if v.config.Pipeline.Deadline > 0 {
		ownDeadline = time.Now().Add(v.config.Pipeline.Deadline)
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, ownDeadline)
		defer cancel()
	}

	claim := model.Claim{
		ID:       model.ClaimID(claimText),
		TenantID: v.config.Pipeline.TenantID,
		Text:     claimText,
	}

	result, gathered, err := v.run(ctx, claim)
	if err != nil {
		return v.deadlineResult(claim, gathered, ownDeadline, err)
	}
	return result, nil
}

// run executes the pipeline stages. On error it also returns any pair
// scores already gathered, so the deadline policy can account for them.
func (v *Verifier) run(ctx context.Context, claim model.Claim) (*model.VerificationResult, []model.PairwiseEntailment, error) {
	if err := v.store.SaveClaim(ctx, claim); err != nil {
		return nil, nil, fmt.Errorf("save claim: %w", err)
	}

	// 1. Embed the claim
	vector, err := v.embedder.Embed(ctx, claim.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("embed claim: %w", err)
	}
	emb := &model.Embedding{
		EntityType:   model.EntityClaim,
		EntityID:     claim.ID,
		Vector:       vector,
		ModelName:    v.embedder.Name(),
		ModelVersion: v.config.Embedding.ModelVersion,
		TenantID:     claim.TenantID,
	}
	if err := v.store.UpsertEmbedding(ctx, emb); err != nil {
		return nil, nil, fmt.Errorf("save claim embedding: %w", err)
	}

	// 2. Retrieve candidate evidence
	refs, err := v.retriever.Retrieve(vector, claim.TenantID, v.config.Pipeline.TopK, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve evidence: %w", err)
	}
	if len(refs) == 0 {
		result := v.aggregator.Aggregate(claim.ID, nil)
		return result, nil, v.finalize(ctx, result)
	}

	// 3. Score each pair concurrently
	records, err := v.scorePairs(ctx, claim, refs)
	if err != nil {
		return nil, records, err
	}
	if len(records) == 0 {
		// Every pair exhausted its retries while evidence exists. That is
		// an infrastructure failure, not an evidence property.
		return nil, nil, fmt.Errorf("score claim %s: %w", claim.ID, nli.ErrScoringUnavailable)
	}

	for i := range records {
		if err := v.store.SaveNLIResult(ctx, &records[i]); err != nil {
			return nil, records, fmt.Errorf("save entailment record: %w", err)
		}
	}

	// 4. Aggregate and persist
	result := v.aggregator.Aggregate(claim.ID, records)
	return result, records, v.finalize(ctx, result)
}

// scorePairs fans scoring out over a bounded worker set. Pairs that
// exhaust their retries are dropped with a warning; fatal errors abort.
func (v *Verifier) scorePairs(ctx context.Context, claim model.Claim, refs []model.EvidenceRef) ([]model.PairwiseEntailment, error) {
	workers := v.config.Concurrency.ScoringWorkers
	if workers <= 0 {
		workers = 1
	}

	scores := make([]pairScore, len(refs))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i, ref := range refs {
		wg.Add(1)
		go func(idx int, r model.EvidenceRef) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				scores[idx] = pairScore{err: ctx.Err()}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			evidence, err := v.store.GetEvidence(ctx, r.EvidenceID)
			if err != nil {
				scores[idx] = pairScore{err: fmt.Errorf("load evidence %s: %w", r.EvidenceID, err)}
				return
			}
			rec, err := v.scorer.Score(ctx, claim, evidence)
			scores[idx] = pairScore{record: rec, err: err}
		}(i, ref)
	}
	wg.Wait()

	records := make([]model.PairwiseEntailment, 0, len(refs))
	var fatal error
	for i, ps := range scores {
		switch {
		case ps.err == nil:
			records = append(records, *ps.record)
		case errors.Is(ps.err, nli.ErrScoringUnavailable):
			// Dropped pair: the record is absent, never a fabricated NEUTRAL.
			v.log.Warn("dropping pair after scoring exhausted retries",
				zap.String("claim_id", claim.ID),
				zap.String("evidence_id", refs[i].EvidenceID),
				zap.Error(ps.err))
		default:
			if fatal == nil {
				fatal = ps.err
			}
		}
	}
	// Completed records travel with the error so a deadline hit can still
	// account for them.
	return records, fatal
}

// finalize stamps identity and persists the result.
func (v *Verifier) finalize(ctx context.Context, result *model.VerificationResult) error {
	result.ID = uuid.NewString()
	result.CreatedAt = time.Now().UTC()
	if err := v.store.SaveVerification(ctx, result); err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	return nil
}

// deadlineResult maps an expired pipeline deadline onto the configured
// policy. With "insufficient", the run still produces a persisted
// INSUFFICIENT result over the pair scores already gathered; with "fail"
// (the default) the error surfaces and nothing is persisted. A deadline
// the caller's context carried in is a cancellation, never a verdict:
// only our own deadline, already expired, selects the policy.
func (v *Verifier) deadlineResult(claim model.Claim, gathered []model.PairwiseEntailment, ownDeadline time.Time, err error) (*model.VerificationResult, error) {
	if !errors.Is(err, context.DeadlineExceeded) ||
		ownDeadline.IsZero() || time.Now().Before(ownDeadline) {
		return nil, err
	}
	if v.config.Pipeline.OnDeadline == model.OnDeadlineInsufficient {
		// Persist outside the dead context. Gathered scores keep their
		// audit trail and populate the result's statistics; the verdict
		// stays INSUFFICIENT because the evidence set is incomplete.
		bg := context.Background()
		for i := range gathered {
			if serr := v.store.SaveNLIResult(bg, &gathered[i]); serr != nil {
				return nil, fmt.Errorf("save entailment record: %w", serr)
			}
		}
		result := v.aggregator.Aggregate(claim.ID, gathered)
		result.Verdict = model.VerdictInsufficient
		result.Confidence = 0
		result.Reasoning = "verification deadline exceeded before scoring completed"
		if serr := v.finalize(bg, result); serr != nil {
			return nil, serr
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrDeadlineExceeded, err)
}
