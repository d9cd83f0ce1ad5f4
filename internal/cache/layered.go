package cache

import (
	"time"

	"github.com/veracity-io/veracity/internal/model"
)

// LayeredCache combines the memory and disk tiers: memory holds decoded
// vectors for hot lookups, disk keeps the encoded form across process
// restarts
type LayeredCache struct {
	memory *MemoryCache
	disk   Cache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory first, then disk, promoting decoded disk hits to
// memory. A disk entry that fails to decode is dropped and counts as a
// miss.
func (c *LayeredCache) Get(key string) ([]float32, bool) {
	if vec, found := c.memory.Get(key); found {
		return vec, true
	}

	if data, found := c.disk.Get(key); found {
		vec, err := model.DecodeVector(data)
		if err != nil {
			_ = c.disk.Delete(key)
			return nil, false
		}
		_ = c.memory.Set(key, vec, 0)
		return vec, true
	}

	return nil, false
}

// Set stores the vector in both tiers
func (c *LayeredCache) Set(key string, vec []float32, ttl time.Duration) error {
	if err := c.memory.Set(key, vec, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, model.EncodeVector(vec), ttl)
}

// Delete removes a vector from both tiers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	_ = c.disk.Delete(key)
	return nil
}

// Clear removes all vectors from both tiers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
