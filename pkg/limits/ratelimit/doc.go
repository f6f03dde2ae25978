// Package ratelimit provides the admission limiters of the edge server.
//
//   - TokenBucket: burst up to capacity, refill at a constant rate
//   - ClientLimiter: one token bucket per client address with idle
//     eviction and a cap on tracked clients
//   - ConcurrentLimiter: atomic in-flight counter with an optional cap,
//     used per upstream server
//
// A rejected request never consumes a token:
//
//	limiter := ratelimit.NewClientLimiter(ratelimit.Config{
//	    RequestsPerSecond: 100,
//	    Burst:             200,
//	    IdleTTL:           10 * time.Minute,
//	})
//	if res := limiter.Allow(clientIP); !res.Allowed {
//	    w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
//	}
//
// All limiters are safe for concurrent use.
package ratelimit
