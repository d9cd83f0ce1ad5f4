package embed

import (
	"context"

	"github.com/veracity-io/veracity/internal/cache"
)

// CachedEmbedder wraps an Embedder with a cache layer. The cache stores
// the exact vector, so a hit reproduces the original embedding bit
// for bit.
type CachedEmbedder struct {
	inner Embedder
	cache cache.VectorCache
}

// NewCachedEmbedder wraps inner with the given cache
func NewCachedEmbedder(inner Embedder, c cache.VectorCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

// Name returns the underlying provider name
func (e *CachedEmbedder) Name() string {
	return e.inner.Name()
}

// Model returns the underlying model identifier
func (e *CachedEmbedder) Model() string {
	return e.inner.Model()
}

// Dimension returns the underlying vector dimension
func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

// Embed returns the cached vector when present, otherwise delegates and
// stores the result.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.EmbeddingKey(e.inner.Model(), text)

	if vec, found := e.cache.Get(key); found {
		if len(vec) == e.inner.Dimension() {
			return vec, nil
		}
		// Wrong-dimension entry, likely from an older model config.
		_ = e.cache.Delete(key)
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = e.cache.Set(key, vec, 0)
	return vec, nil
}
