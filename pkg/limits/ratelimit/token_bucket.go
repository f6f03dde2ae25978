package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The bucket holds up to capacity tokens and refills continuously at
// refillRate tokens per second. A request takes one or more tokens; when
// too few are available it is rejected and nothing is consumed.
//
// TokenBucket is safe for concurrent use.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket.
//
//	// 100 requests/sec average, burst up to 200
//	bucket := NewTokenBucket(200, 100)
func NewTokenBucket(capacity int64, refillRate float64) *TokenBucket {
	return newTokenBucketAt(capacity, refillRate, time.Now())
}

func newTokenBucketAt(capacity int64, refillRate float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now,
	}
}

// Take attempts to consume n tokens. It reports whether they were available.
func (tb *TokenBucket) Take(n int64) bool {
	return tb.TakeAt(time.Now(), n)
}

// TakeAt is Take with an explicit clock reading.
func (tb *TokenBucket) TakeAt(now time.Time, n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(now)

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Remaining returns the number of whole tokens currently available.
func (tb *TokenBucket) Remaining() int64 {
	return tb.RemainingAt(time.Now())
}

// RemainingAt is Remaining with an explicit clock reading.
func (tb *TokenBucket) RemainingAt(now time.Time) int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(now)
	return int64(tb.tokens)
}

// Capacity returns the maximum bucket capacity.
func (tb *TokenBucket) Capacity() int64 {
	return int64(tb.capacity)
}

// Reset refills the bucket to capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// TimeUntilAvailable returns how long until n tokens will be available.
// Returns 0 if tokens are immediately available.
func (tb *TokenBucket) TimeUntilAvailable(n int64) time.Duration {
	return tb.TimeUntilAvailableAt(time.Now(), n)
}

// TimeUntilAvailableAt is TimeUntilAvailable with an explicit clock reading.
func (tb *TokenBucket) TimeUntilAvailableAt(now time.Time, n int64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(now)

	if tb.tokens >= float64(n) {
		return 0
	}
	if tb.refillRate <= 0 {
		return time.Duration(1<<63 - 1)
	}

	secondsNeeded := (float64(n) - tb.tokens) / tb.refillRate
	return time.Duration(secondsNeeded * float64(time.Second))
}

// refillLocked adds tokens for the time elapsed since the last refill.
// Caller must hold lock. A clock reading older than the last refill adds
// nothing.
func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
