package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// VectorCache caches embedding vectors by key. Callers store and fetch
// decoded vectors; any on-media encoding is a tier concern.
type VectorCache interface {
	Get(key string) ([]float32, bool)
	Set(key string, vec []float32, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Cache is the byte-oriented interface of the persistent tiers
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// EmbeddingKey generates a cache key for an embedding of text under a
// specific model. Same model + same text always hits the same entry.
func EmbeddingKey(modelName, text string) string {
	hash := sha256.Sum256([]byte(modelName + "\x00" + text))
	return "veracity:emb:v1:" + hex.EncodeToString(hash[:])
}
