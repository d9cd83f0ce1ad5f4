package embed

import (
	"context"

	"github.com/veracity-io/veracity/internal/worker"
)

// limiterResource names the embedding token bucket in the shared limiter.
const limiterResource = "embedding"

// LimitedEmbedder paces calls to the underlying provider through a shared
// rate limiter. Wrap it inside the cache layer so cache hits skip the
// limiter entirely.
type LimitedEmbedder struct {
	inner   Embedder
	limiter *worker.Limiter
}

// NewLimitedEmbedder wraps inner with the given limiter
func NewLimitedEmbedder(inner Embedder, limiter *worker.Limiter) *LimitedEmbedder {
	return &LimitedEmbedder{inner: inner, limiter: limiter}
}

// Name returns the underlying provider name
func (e *LimitedEmbedder) Name() string {
	return e.inner.Name()
}

// Model returns the underlying model identifier
func (e *LimitedEmbedder) Model() string {
	return e.inner.Model()
}

// Dimension returns the underlying vector dimension
func (e *LimitedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

// Embed waits for a token, then delegates.
func (e *LimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, limiterResource); err != nil {
			return nil, err
		}
	}
	return e.inner.Embed(ctx, text)
}
