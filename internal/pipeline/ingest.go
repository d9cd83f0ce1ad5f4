package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/veracity-io/veracity/internal/embed"
	"github.com/veracity-io/veracity/internal/index"
	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/store"
)

// Ingester embeds evidence documents and makes them retrievable: text and
// vector persisted, vector registered in the live index.
type Ingester struct {
	embedder embed.Embedder
	index    *index.Index
	store    store.Store
	config   *model.Config
	log      *zap.Logger
}

// NewIngester creates an ingester over already-constructed collaborators.
func NewIngester(embedder embed.Embedder, idx *index.Index, st store.Store, cfg *model.Config, log *zap.Logger) *Ingester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{embedder: embedder, index: idx, store: st, config: cfg, log: log}
}

// IngestEvidence embeds and indexes the given documents concurrently.
// Re-ingesting an id replaces its text, vector and index placement.
// Returns the number ingested; the first failure aborts the batch.
func (g *Ingester) IngestEvidence(ctx context.Context, docs []model.EvidenceDoc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	workers := g.config.Concurrency.IngestWorkers
	if workers <= 0 {
		workers = 1
	}

	errs := make([]error, len(docs))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i, doc := range docs {
		wg.Add(1)
		go func(idx int, d model.EvidenceDoc) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			errs[idx] = g.ingestOne(ctx, d)
		}(i, doc)
	}
	wg.Wait()

	count := 0
	for i, err := range errs {
		if err != nil {
			return count, fmt.Errorf("ingest evidence %s: %w", docs[i].ID, err)
		}
		count++
	}
	return count, nil
}

func (g *Ingester) ingestOne(ctx context.Context, doc model.EvidenceDoc) error {
	if doc.ID == "" || doc.Text == "" {
		return fmt.Errorf("evidence needs both id and text")
	}
	if doc.TenantID == "" {
		doc.TenantID = g.config.Pipeline.TenantID
	}

	vector, err := g.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	if err := g.store.SaveEvidence(ctx, doc); err != nil {
		return fmt.Errorf("save text: %w", err)
	}
	emb := &model.Embedding{
		EntityType:   model.EntityEvidence,
		EntityID:     doc.ID,
		Vector:       vector,
		ModelName:    g.embedder.Name(),
		ModelVersion: g.config.Embedding.ModelVersion,
		TenantID:     doc.TenantID,
	}
	if err := g.store.UpsertEmbedding(ctx, emb); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	if err := g.index.Upsert(model.EntityEvidence, doc.ID, vector, doc.TenantID); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	g.log.Debug("ingested evidence",
		zap.String("evidence_id", doc.ID),
		zap.String("tenant_id", doc.TenantID))
	return nil
}

// LoadIndex rebuilds the in-memory index from persisted evidence
// embeddings for the configured tenant. Called once at startup.
func (g *Ingester) LoadIndex(ctx context.Context) (int, error) {
	embs, err := g.store.ListEmbeddings(ctx, model.EntityEvidence, g.config.Pipeline.TenantID)
	if err != nil {
		return 0, fmt.Errorf("list embeddings: %w", err)
	}
	for _, emb := range embs {
		if err := g.index.Upsert(emb.EntityType, emb.EntityID, emb.Vector, emb.TenantID); err != nil {
			return 0, fmt.Errorf("index %s: %w", emb.EntityID, err)
		}
	}
	return len(embs), nil
}
