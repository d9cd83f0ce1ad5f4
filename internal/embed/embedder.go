// Package embed adapts external embedding providers behind a narrow
// interface. The embedding model itself is an external collaborator; this
// package only normalizes its output into fixed-dimension vectors.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/veracity-io/veracity/internal/model"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Model returns the embedding model identifier
	Model() string

	// Dimension returns the vector dimension this embedder produces
	Dimension() int

	// Embed returns the vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder from configuration. Dimension is
// validated at construction, not discovered at query time.
func NewEmbedder(cfg model.EmbeddingConfig) (Embedder, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIEmbedder(cfg)

	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", cfg.Provider)
	}
}
