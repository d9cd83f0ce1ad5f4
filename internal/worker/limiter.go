package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter implements per-resource rate limiting. Each external
// collaborator (classifier, embedder) gets its own token bucket so one
// cannot starve the other.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter with the given defaults
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the named resource's limiter grants a token or the
// context is done.
func (l *Limiter) Wait(ctx context.Context, resource string) error {
	return l.getLimiter(resource).Wait(ctx)
}

// Allow checks if a request to the resource is allowed without waiting
func (l *Limiter) Allow(resource string) bool {
	return l.getLimiter(resource).Allow()
}

// SetResourceRate sets a custom rate limit for a specific resource
func (l *Limiter) SetResourceRate(resource string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[resource] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) getLimiter(resource string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[resource]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[resource]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[resource] = limiter

	return limiter
}
