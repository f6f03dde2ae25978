package ratelimit

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ClientLimiter keeps one token bucket per client address. Buckets are
// created on first sight and removed by Evict once idle.
type ClientLimiter struct {
	config  Config
	clients sync.Map // map[string]*clientEntry
	count   atomic.Int64
	evictMu sync.Mutex
	now     func() time.Time
}

const evictBatchDivisor = 10

type clientEntry struct {
	bucket   *TokenBucket
	lastSeen atomic.Int64 // unix nanoseconds
}

// NewClientLimiter creates a limiter with the given configuration.
func NewClientLimiter(config Config) *ClientLimiter {
	return &ClientLimiter{
		config: config,
		now:    time.Now,
	}
}

// Allow takes one token from the client's bucket. A rejected request
// consumes nothing.
func (cl *ClientLimiter) Allow(client string) CheckResult {
	now := cl.now()
	entry := cl.entry(client, now)
	entry.lastSeen.Store(now.UnixNano())

	if entry.bucket.TakeAt(now, 1) {
		return CheckResult{
			Allowed:   true,
			Limit:     cl.config.Burst,
			Remaining: entry.bucket.RemainingAt(now),
		}
	}

	retry := entry.bucket.TimeUntilAvailableAt(now, 1)
	if retry < time.Second {
		// Retry-After has second granularity.
		retry = time.Second
	}
	return CheckResult{
		Allowed:    false,
		Limit:      cl.config.Burst,
		Remaining:  0,
		RetryAfter: retry,
	}
}

func (cl *ClientLimiter) entry(client string, now time.Time) *clientEntry {
	if v, ok := cl.clients.Load(client); ok {
		return v.(*clientEntry)
	}

	fresh := &clientEntry{bucket: newTokenBucketAt(cl.config.Burst, cl.config.RequestsPerSecond, now)}
	fresh.lastSeen.Store(now.UnixNano())
	v, loaded := cl.clients.LoadOrStore(client, fresh)
	if !loaded {
		if n := cl.count.Add(1); cl.config.MaxClients > 0 && n > int64(cl.config.MaxClients) {
			cl.evictOldest(max(int(n)-cl.config.MaxClients, cl.evictBatch()))
		}
	}
	return v.(*clientEntry)
}

// evictBatch is how many clients a pass triggered by Allow removes. Freeing
// a tenth of the table at once means the table scan runs once per
// MaxClients/10 new clients instead of once per request.
func (cl *ClientLimiter) evictBatch() int {
	return max(cl.config.MaxClients/evictBatchDivisor, 1)
}

// Evict removes clients idle longer than IdleTTL, then trims the table to
// MaxClients by dropping the least recently seen. It returns the number
// of clients removed.
func (cl *ClientLimiter) Evict(now time.Time) int {
	removed := 0

	if cl.config.IdleTTL > 0 {
		cutoff := now.Add(-cl.config.IdleTTL).UnixNano()
		cl.clients.Range(func(key, value any) bool {
			if value.(*clientEntry).lastSeen.Load() < cutoff {
				if _, ok := cl.clients.LoadAndDelete(key); ok {
					cl.count.Add(-1)
					removed++
				}
			}
			return true
		})
	}

	if cl.config.MaxClients > 0 {
		if over := int(cl.count.Load()) - cl.config.MaxClients; over > 0 {
			removed += cl.evictOldest(over)
		}
	}

	if removed > 0 {
		slog.Debug("Rate limiter evicted idle clients",
			"removed", removed,
			"tracked", cl.count.Load(),
		)
	}
	return removed
}

// evictOldest removes up to n least recently seen clients. Only one
// eviction pass runs at a time; concurrent callers return immediately and
// the table may briefly exceed MaxClients.
func (cl *ClientLimiter) evictOldest(n int) int {
	if n <= 0 || !cl.evictMu.TryLock() {
		return 0
	}
	defer cl.evictMu.Unlock()

	type seen struct {
		key      any
		lastSeen int64
	}
	var all []seen
	cl.clients.Range(func(key, value any) bool {
		all = append(all, seen{key: key, lastSeen: value.(*clientEntry).lastSeen.Load()})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].lastSeen < all[j].lastSeen })

	removed := 0
	for _, s := range all {
		if removed >= n {
			break
		}
		if _, ok := cl.clients.LoadAndDelete(s.key); ok {
			cl.count.Add(-1)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (cl *ClientLimiter) Len() int {
	return int(cl.count.Load())
}

// Config returns the limiter configuration.
func (cl *ClientLimiter) Config() Config {
	return cl.config
}
