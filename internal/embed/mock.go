package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder produces deterministic pseudo-embeddings from token hashes.
// Texts sharing tokens get similar vectors, which is enough for retrieval
// tests and offline runs without an API key.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a mock embedder with the given dimension
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

// Name returns the provider name
func (e *MockEmbedder) Name() string {
	return "mock"
}

// Model returns the embedding model identifier
func (e *MockEmbedder) Model() string {
	return "mock-hash"
}

// Dimension returns the vector dimension
func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

// Embed hashes each whitespace token into a vector component and
// normalizes the result to unit length.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum) % e.dimension
		if idx < 0 {
			idx += e.dimension
		}
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}
