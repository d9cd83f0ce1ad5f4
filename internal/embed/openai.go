package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/veracity-io/veracity/internal/model"
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	config model.EmbeddingConfig
}

// NewOpenAIEmbedder creates a new OpenAI embedder
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name returns the provider name
func (e *OpenAIEmbedder) Name() string {
	return "openai"
}

// Model returns the embedding model identifier
func (e *OpenAIEmbedder) Model() string {
	return e.config.Model
}

// Dimension returns the configured vector dimension
func (e *OpenAIEmbedder) Dimension() int {
	return e.config.Dimension
}

// Embed requests an embedding for the text. The API is asked for exactly
// the configured dimension; a response of any other length is a contract
// violation and surfaces as an error.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	timeout := e.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctxWithTimeout, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.config.Model),
		Input:      []string{text},
		Dimensions: e.config.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings API: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned from OpenAI")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != e.config.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), e.config.Dimension)
	}

	return vec, nil
}
