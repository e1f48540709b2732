package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/loop"
)

// TokenBucketRateLimiter implements token bucket rate limiting
type TokenBucketRateLimiter struct {
	capacity   int
	tokens     int
	refillRate time.Duration
	lastRefill time.Time
	clock      loop.Clock
	mu         sync.Mutex
}

// NewTokenBucketRateLimiter allows capacity sends per window. A nil
// clock means the real clock.
func NewTokenBucketRateLimiter(capacity int, window time.Duration, clock loop.Clock) *TokenBucketRateLimiter {
	if clock == nil {
		clock = loop.RealClock()
	}
	refill := window
	if capacity > 0 {
		refill = window / time.Duration(capacity)
	}
	return &TokenBucketRateLimiter{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refill,
		lastRefill: clock.Now(),
		clock:      clock,
	}
}

// Ensure TokenBucketRateLimiter implements RateLimiter
var _ interfaces.RateLimiter = (*TokenBucketRateLimiter)(nil)

// Allow checks if a request is allowed under the rate limit
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.clock.Now()
	if tb.refillRate > 0 {
		if add := int(now.Sub(tb.lastRefill) / tb.refillRate); add > 0 {
			tb.tokens = min(tb.capacity, tb.tokens+add)
			// Keep the remainder so partial refills aren't lost.
			tb.lastRefill = tb.lastRefill.Add(time.Duration(add) * tb.refillRate)
		}
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Reset resets the rate limiter to full capacity
func (tb *TokenBucketRateLimiter) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.clock.Now()
}
