package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles document writes per collection
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing writesPerSecond per collection.
// A non-positive rate disables throttling.
func NewLimiter(writesPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(writesPerSecond)
	if writesPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until n writes to collection are allowed.
// Batches larger than the burst are admitted in burst-sized steps.
func (l *Limiter) Wait(ctx context.Context, collection string, n int) error {
	limiter := l.getLimiter(collection)
	for n > 0 {
		step := min(n, limiter.Burst())
		if err := limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

func (l *Limiter) getLimiter(collection string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[collection]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[collection]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[collection] = limiter
	return limiter
}
