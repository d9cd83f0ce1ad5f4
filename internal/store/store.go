// Package store defines the persistence interface for the verification
// pipeline's artifacts.
package store

import (
	"context"
	"errors"

	"github.com/veracity-io/veracity/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store persists corpus texts, embeddings, pairwise entailment records,
// verification results and benchmark runs. Entailment and verification
// rows are write-once from the pipeline's perspective; recomputation
// inserts new verification rows and keeps old ones for audit.
type Store interface {
	// Corpus texts
	SaveClaim(ctx context.Context, claim model.Claim) error
	GetClaim(ctx context.Context, id string) (model.Claim, error)
	SaveEvidence(ctx context.Context, doc model.EvidenceDoc) error
	GetEvidence(ctx context.Context, id string) (model.EvidenceDoc, error)

	// Embeddings: at most one per (entity_type, entity_id); upsert
	// replaces the whole row.
	UpsertEmbedding(ctx context.Context, emb *model.Embedding) error
	GetEmbedding(ctx context.Context, entityType model.EntityType, entityID string) (*model.Embedding, error)
	ListEmbeddings(ctx context.Context, entityType model.EntityType, tenantID string) ([]*model.Embedding, error)

	// Pairwise entailment records
	SaveNLIResult(ctx context.Context, rec *model.PairwiseEntailment) error
	GetNLIResults(ctx context.Context, claimID string) ([]*model.PairwiseEntailment, error)

	// Verification results (append-only)
	SaveVerification(ctx context.Context, result *model.VerificationResult) error
	GetVerification(ctx context.Context, id string) (*model.VerificationResult, error)
	ListVerifications(ctx context.Context, claimID string) ([]*model.VerificationResult, error)

	// Benchmark runs
	SaveBenchmarkRun(ctx context.Context, run *model.BenchmarkRun) error
	GetBenchmarkRun(ctx context.Context, id string) (*model.BenchmarkRun, error)
	LatestBenchmarkRun(ctx context.Context, name string) (*model.BenchmarkRun, error)

	Close() error
}
