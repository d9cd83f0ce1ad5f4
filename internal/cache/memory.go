package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps decoded embedding vectors in process memory with TTL
// eviction, so hot lookups skip both the disk tier and vector decoding.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a vector from the cache
func (c *MemoryCache) Get(key string) ([]float32, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]float32), true
	}
	return nil, false
}

// Set stores a vector in the cache with the given TTL. The vector is
// copied, so the entry does not alias the caller's slice.
func (c *MemoryCache) Set(key string, vec []float32, ttl time.Duration) error {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Set(key, stored, ttl)
	return nil
}

// Delete removes a vector from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all vectors from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
