package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTokenBucket_BurstAndRefill(t *testing.T) {
	tb := newTokenBucketAt(3, 1, epoch)

	for i := 0; i < 3; i++ {
		if !tb.TakeAt(epoch, 1) {
			t.Fatalf("take %d should succeed within burst", i)
		}
	}
	if tb.TakeAt(epoch, 1) {
		t.Fatal("take beyond burst should fail")
	}

	// Half a second refills half a token; still denied.
	half := epoch.Add(500 * time.Millisecond)
	if tb.TakeAt(half, 1) {
		t.Fatal("expected denial after partial refill")
	}
	// The denial above consumed nothing, so the next half second completes a token.
	if !tb.TakeAt(epoch.Add(time.Second), 1) {
		t.Fatal("expected one token after a full second")
	}

	// Refill never exceeds capacity.
	if got := tb.RemainingAt(epoch.Add(time.Hour)); got != 3 {
		t.Errorf("RemainingAt = %d, want 3", got)
	}
}

func TestTokenBucket_TimeUntilAvailable(t *testing.T) {
	tb := newTokenBucketAt(1, 2, epoch)
	if d := tb.TimeUntilAvailableAt(epoch, 1); d != 0 {
		t.Errorf("TimeUntilAvailable = %v, want 0", d)
	}
	tb.TakeAt(epoch, 1)
	if d := tb.TimeUntilAvailableAt(epoch, 1); d != 500*time.Millisecond {
		t.Errorf("TimeUntilAvailable = %v, want 500ms", d)
	}

	tb.Reset()
	if tb.Remaining() != 1 {
		t.Errorf("Remaining after Reset = %d, want 1", tb.Remaining())
	}
	if tb.Capacity() != 1 {
		t.Errorf("Capacity = %d, want 1", tb.Capacity())
	}
}

func TestTokenBucket_ClockGoingBackwards(t *testing.T) {
	tb := newTokenBucketAt(1, 1, epoch)
	tb.TakeAt(epoch, 1)
	if tb.TakeAt(epoch.Add(-time.Hour), 1) {
		t.Error("earlier clock reading must not refill")
	}
}

func newTestLimiter(cfg Config) (*ClientLimiter, *time.Time) {
	now := epoch
	cl := NewClientLimiter(cfg)
	cl.now = func() time.Time { return now }
	return cl, &now
}

func TestClientLimiter_Allow(t *testing.T) {
	cl, now := newTestLimiter(Config{RequestsPerSecond: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		if res := cl.Allow("10.0.0.1"); !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	res := cl.Allow("10.0.0.1")
	if res.Allowed {
		t.Fatal("third request should be limited")
	}
	if res.RetryAfter < time.Second {
		t.Errorf("RetryAfter = %v, want >= 1s", res.RetryAfter)
	}
	if res.Limit != 2 || res.Remaining != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	// Other clients have their own bucket.
	if !cl.Allow("10.0.0.2").Allowed {
		t.Error("second client should be allowed")
	}

	*now = now.Add(time.Second)
	if !cl.Allow("10.0.0.1").Allowed {
		t.Error("expected refill after one second")
	}
	if cl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cl.Len())
	}
}

func TestClientLimiter_EvictIdle(t *testing.T) {
	cl, now := newTestLimiter(Config{RequestsPerSecond: 10, Burst: 10, IdleTTL: time.Minute})

	cl.Allow("old")
	*now = now.Add(2 * time.Minute)
	cl.Allow("new")

	if removed := cl.Evict(*now); removed != 1 {
		t.Errorf("Evict removed %d, want 1", removed)
	}
	if _, ok := cl.clients.Load("old"); ok {
		t.Error("expected idle client to be evicted")
	}
	if _, ok := cl.clients.Load("new"); !ok {
		t.Error("expected active client to be kept")
	}
}

func TestClientLimiter_MaxClients(t *testing.T) {
	cl, now := newTestLimiter(Config{RequestsPerSecond: 10, Burst: 10, MaxClients: 3})

	for i := 0; i < 5; i++ {
		*now = now.Add(time.Second)
		cl.Allow(fmt.Sprintf("client-%d", i))
	}

	if cl.Len() > 3 {
		t.Errorf("Len() = %d, want <= 3", cl.Len())
	}
	if _, ok := cl.clients.Load("client-4"); !ok {
		t.Error("most recent client must be kept")
	}
	if _, ok := cl.clients.Load("client-0"); ok {
		t.Error("least recently seen client should be evicted")
	}
}

func TestClientLimiter_MaxClientsEvictsInBatches(t *testing.T) {
	const maxClients = 1000
	cl, now := newTestLimiter(Config{RequestsPerSecond: 10, Burst: 10, MaxClients: maxClients})

	for i := 0; i < maxClients; i++ {
		*now = now.Add(time.Millisecond)
		cl.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	if cl.Len() != maxClients {
		t.Fatalf("Len() = %d, want %d", cl.Len(), maxClients)
	}

	// The first client over the cap frees a tenth of the table.
	cl.Allow("new-0")
	if want := maxClients - maxClients/10 + 1; cl.Len() != want {
		t.Fatalf("Len() after first overflow = %d, want %d", cl.Len(), want)
	}

	// The next clients fit into the freed room without another table scan.
	for i := 1; i < maxClients/10; i++ {
		cl.Allow(fmt.Sprintf("new-%d", i))
	}
	if cl.Len() != maxClients {
		t.Errorf("Len() = %d, want %d with no eviction in between", cl.Len(), maxClients)
	}
	if _, ok := cl.clients.Load("10.0.0.0"); ok {
		t.Error("least recently seen client should be evicted")
	}
	if _, ok := cl.clients.Load("new-0"); !ok {
		t.Error("new client must be kept")
	}
}

func TestClientLimiter_Concurrent(t *testing.T) {
	cl := NewClientLimiter(Config{RequestsPerSecond: 0.0001, Burst: 50})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cl.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestConcurrentLimiter(t *testing.T) {
	cl := NewConcurrentLimiter(2)
	if !cl.Acquire() || !cl.Acquire() {
		t.Fatal("expected two slots")
	}
	if cl.Acquire() {
		t.Fatal("third acquire should fail")
	}
	if !cl.Saturated() || cl.Remaining() != 0 {
		t.Errorf("expected saturated limiter, current %d", cl.Current())
	}
	cl.Release()
	if cl.Current() != 1 || cl.Remaining() != 1 {
		t.Errorf("Current = %d, Remaining = %d, want 1, 1", cl.Current(), cl.Remaining())
	}

	unlimited := NewConcurrentLimiter(0)
	for i := 0; i < 100; i++ {
		if !unlimited.Acquire() {
			t.Fatal("unlimited limiter should always acquire")
		}
	}
	if unlimited.Saturated() || unlimited.Remaining() != -1 || unlimited.Current() != 100 {
		t.Errorf("unexpected unlimited state: current %d", unlimited.Current())
	}
}

func BenchmarkClientLimiter_AllowNewClientAtCap(b *testing.B) {
	const maxClients = 100000
	cl := NewClientLimiter(Config{RequestsPerSecond: 10, Burst: 10, MaxClients: maxClients})
	for i := 0; i < maxClients; i++ {
		cl.Allow(fmt.Sprintf("fill-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cl.Allow(fmt.Sprintf("new-%d", i))
	}
}
