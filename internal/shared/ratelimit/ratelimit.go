// Package ratelimit bounds how often a single actor may trigger expensive
// operations. The check is keyed by actor identity and parameterized by a
// request budget per window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the actor has exhausted its budget. Callers
// should surface it as "try again in a moment", never as a generic failure.
var ErrRateLimited = errors.New("rate limited")

// Limit is a request budget: at most MaxRequests per Window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter decides whether one more request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string, limit Limit) (bool, error)
}

// Check runs limiter for key and converts a denial into ErrRateLimited.
func Check(ctx context.Context, limiter Limiter, key string, limit Limit) error {
	allowed, err := limiter.Allow(ctx, key, limit)
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: more than %d requests in %s", ErrRateLimited, limit.MaxRequests, limit.Window)
	}
	return nil
}

// MemoryLimiter keeps one token bucket per (key, limit) in process memory.
// The bucket refills MaxRequests tokens evenly over Window with a burst of
// MaxRequests, which approximates the sliding window enforced by the
// database backend. A bucket idle for longer than its window is full again,
// so it is dropped and recreated on the next request.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// sweepInterval bounds how often Allow scans for idle buckets.
const sweepInterval = time.Minute

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit Limit) (bool, error) {
	if limit.MaxRequests <= 0 || limit.Window <= 0 {
		return false, fmt.Errorf("invalid limit %d/%s", limit.MaxRequests, limit.Window)
	}

	bucketKey := fmt.Sprintf("%s|%d|%s", key, limit.MaxRequests, limit.Window)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}

	b, ok := m.buckets[bucketKey]
	if !ok {
		every := limit.Window / time.Duration(limit.MaxRequests)
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(every), limit.MaxRequests),
			window:  limit.Window,
		}
		m.buckets[bucketKey] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1), nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.lastSeen) > b.window {
			delete(m.buckets, k)
		}
	}
	m.lastSweep = now
}

// Len reports how many buckets are held.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
