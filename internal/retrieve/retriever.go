// Package retrieve answers evidence retrieval queries against the vector
// index. Purely a query layer; no side effects.
package retrieve

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/veracity-io/veracity/internal/index"
	"github.com/veracity-io/veracity/internal/model"
)

// Method names the retrieval strategy recorded on verification results.
const Method = "ivf-cosine"

// Retriever finds the evidence items most similar to a claim embedding.
type Retriever struct {
	index *index.Index
	log   *zap.Logger
}

// NewRetriever creates a retriever over the given index
func NewRetriever(idx *index.Index, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{index: idx, log: log}
}

// Retrieve returns up to topK evidence refs for the claim embedding,
// ranked by descending similarity. A tenant with no evidence yields an
// empty sequence, not an error; that emptiness is what drives an
// INSUFFICIENT verdict downstream.
func (r *Retriever) Retrieve(claimEmbedding []float32, tenantID string, topK, probeBudget int) ([]model.EvidenceRef, error) {
	hits, err := r.index.Query(claimEmbedding, model.EntityEvidence, tenantID, topK, probeBudget)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}
	if len(hits) == 0 {
		r.log.Debug("no evidence retrieved", zap.String("tenant_id", tenantID))
		return nil, nil
	}

	// The index guarantees unique ids, but retrieval must be defensive:
	// a duplicate here would double-count evidence in the verdict.
	refs := make([]model.EvidenceRef, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if seen[hit.EntityID] {
			r.log.Warn("duplicate evidence id from index", zap.String("evidence_id", hit.EntityID))
			continue
		}
		seen[hit.EntityID] = true
		refs = append(refs, model.EvidenceRef{
			EvidenceID: hit.EntityID,
			Similarity: hit.Similarity,
		})
	}
	return refs, nil
}
