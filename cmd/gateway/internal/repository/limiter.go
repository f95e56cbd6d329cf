package repository

import (
	"sync"

	"golang.org/x/time/rate"
)

var _ RateLimiter = (*LocalRateLimiter)(nil)

// LocalRateLimiter keeps one token bucket per key in memory. Buckets are never
// evicted, so like the registry it grows by one entry per distinct client id.
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLocalRateLimiter allows perSecond events per key with the given burst.
// A non-positive perSecond disables limiting.
func NewLocalRateLimiter(perSecond float64, burst int) *LocalRateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &LocalRateLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (l *LocalRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow(), nil
}
