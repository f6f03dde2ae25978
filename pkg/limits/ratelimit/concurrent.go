package ratelimit

import (
	"sync/atomic"
)

// ConcurrentLimiter counts in-flight requests and optionally caps them.
//
// It is a counting semaphore built on atomics. A limit of zero or less
// means unlimited: Acquire always succeeds and the limiter only counts.
type ConcurrentLimiter struct {
	limit   atomic.Int64
	current atomic.Int64
}

// NewConcurrentLimiter creates a limiter allowing limit simultaneous
// holders (0 = unlimited).
//
//	limiter := NewConcurrentLimiter(50)
//	if limiter.Acquire() {
//	    defer limiter.Release()
//	    // forward request
//	}
func NewConcurrentLimiter(limit int64) *ConcurrentLimiter {
	cl := &ConcurrentLimiter{}
	cl.limit.Store(limit)
	return cl
}

// Acquire attempts to take a slot and reports whether it succeeded.
// A successful Acquire must be paired with Release.
func (cl *ConcurrentLimiter) Acquire() bool {
	current := cl.current.Add(1)

	if limit := cl.limit.Load(); limit > 0 && current > limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConcurrentLimiter) Release() {
	cl.current.Add(-1)
}

// Current returns the number of slots held.
func (cl *ConcurrentLimiter) Current() int64 {
	return cl.current.Load()
}

// Limit returns the configured limit (0 = unlimited).
func (cl *ConcurrentLimiter) Limit() int64 {
	return cl.limit.Load()
}

// Saturated reports whether a capped limiter has no free slot.
func (cl *ConcurrentLimiter) Saturated() bool {
	limit := cl.limit.Load()
	return limit > 0 && cl.current.Load() >= limit
}

// Remaining returns the number of free slots, or -1 when unlimited.
func (cl *ConcurrentLimiter) Remaining() int64 {
	limit := cl.limit.Load()
	if limit <= 0 {
		return -1
	}
	remaining := limit - cl.current.Load()
	if remaining < 0 {
		return 0
	}
	return remaining
}
