package strategies

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"mercator-hq/edge/pkg/routing"
)

type fakeBackend struct {
	addr      string
	unhealthy bool
	saturated bool
	inFlight  atomic.Int64
}

func (b *fakeBackend) Address() string { return b.addr }
func (b *fakeBackend) Healthy() bool   { return !b.unhealthy }
func (b *fakeBackend) Saturated() bool { return b.saturated }
func (b *fakeBackend) InFlight() int64 { return b.inFlight.Load() }

func backends(addrs ...string) []Backend {
	out := make([]Backend, len(addrs))
	for i, a := range addrs {
		out[i] = &fakeBackend{addr: a}
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "round_robin", want: "round_robin"},
		{name: "", want: "round_robin"},
		{name: "least_connections", want: "least_connections"},
		{name: "random", want: "random"},
		{name: "ip_hash", want: "ip_hash"},
		{name: "weighted", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, routing.ErrInvalidStrategy) {
					t.Errorf("expected ErrInvalidStrategy, got %v", err)
				}
				return
			}
			if s.GetName() != tt.want {
				t.Errorf("GetName() = %q, want %q", s.GetName(), tt.want)
			}
		})
	}
}

func TestStrategies_EmptyList(t *testing.T) {
	for _, s := range []Strategy{NewRoundRobin(), NewLeastConnections(), NewRandom(), NewIPHash()} {
		t.Run(s.GetName(), func(t *testing.T) {
			if _, err := s.Select(nil); !errors.Is(err, routing.ErrNoBackends) {
				t.Errorf("Select(nil) error = %v, want ErrNoBackends", err)
			}
		})
	}
}

func TestRoundRobin_EvenDistribution(t *testing.T) {
	list := backends("a", "b", "c")
	s := NewRoundRobin()

	counts := make(map[string]int)
	iterations := 300 // 100 per backend

	for i := 0; i < iterations; i++ {
		b, err := s.Select(list)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		counts[b.Address()]++
	}

	for _, b := range list {
		if counts[b.Address()] != 100 {
			t.Errorf("backend %s got %d requests, expected 100", b.Address(), counts[b.Address()])
		}
	}
}

func TestRoundRobin_Order(t *testing.T) {
	list := backends("a", "b")
	s := NewRoundRobin()

	var got []string
	for i := 0; i < 4; i++ {
		b, _ := s.Select(list)
		got = append(got, b.Address())
	}
	want := []string{"a", "b", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
}

func TestRoundRobin_ConcurrentAccess(t *testing.T) {
	list := backends("a", "b", "c")
	s := NewRoundRobin()

	concurrency := 50
	perGoroutine := 60

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := make(map[string]int)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				b, err := s.Select(list)
				if err != nil {
					t.Errorf("goroutine %d: Select() error = %v", id, err)
					return
				}
				mu.Lock()
				counts[b.Address()]++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	// The shared counter hands out every index exactly once per cycle.
	want := concurrency * perGoroutine / len(list)
	for _, b := range list {
		if counts[b.Address()] != want {
			t.Errorf("backend %s got %d, want %d", b.Address(), counts[b.Address()], want)
		}
	}
}

func TestRoundRobin_Reset(t *testing.T) {
	s := NewRoundRobin()
	list := backends("a", "b")

	for i := 0; i < 3; i++ {
		if _, err := s.Select(list); err != nil {
			t.Fatal(err)
		}
	}
	if s.counter.Load() == 0 {
		t.Error("counter should be > 0 before reset")
	}

	s.Reset()
	if s.counter.Load() != 0 {
		t.Errorf("counter after reset = %d, expected 0", s.counter.Load())
	}
}

func TestLeastConnections(t *testing.T) {
	a := &fakeBackend{addr: "a"}
	b := &fakeBackend{addr: "b"}
	c := &fakeBackend{addr: "c"}
	list := []Backend{a, b, c}
	s := NewLeastConnections()

	// All idle: the first wins the tie.
	got, _ := s.Select(list)
	if got != a {
		t.Errorf("Select() = %s, want a", got.Address())
	}

	a.inFlight.Store(3)
	b.inFlight.Store(1)
	c.inFlight.Store(1)
	got, _ = s.Select(list)
	if got != b {
		t.Errorf("Select() = %s, want b", got.Address())
	}

	b.inFlight.Store(5)
	got, _ = s.Select(list)
	if got != c {
		t.Errorf("Select() = %s, want c", got.Address())
	}
}

func TestRandom_StaysInRange(t *testing.T) {
	list := backends("a", "b", "c")
	s := NewRandom()

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		b, err := s.Select(list)
		if err != nil {
			t.Fatal(err)
		}
		seen[b.Address()] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected all backends to be picked at least once, saw %v", seen)
	}
}

func TestIPHash_BehavesLikeRoundRobin(t *testing.T) {
	list := backends("a", "b")
	s := NewIPHash()

	first, _ := s.Select(list)
	second, _ := s.Select(list)
	if first.Address() != "a" || second.Address() != "b" {
		t.Errorf("ip_hash rotation = %s,%s, want a,b", first.Address(), second.Address())
	}
}

func TestHealthFiltered(t *testing.T) {
	a := &fakeBackend{addr: "a", unhealthy: true}
	b := &fakeBackend{addr: "b"}
	c := &fakeBackend{addr: "c", saturated: true}
	s := NewHealthFiltered(NewRoundRobin())

	for i := 0; i < 5; i++ {
		got, err := s.Select([]Backend{a, b, c})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if got != b {
			t.Fatalf("Select() = %s, want b", got.Address())
		}
	}

	b.unhealthy = true
	if _, err := s.Select([]Backend{a, b, c}); !errors.Is(err, routing.ErrNoBackends) {
		t.Errorf("expected ErrNoBackends, got %v", err)
	}

	if s.GetName() != "round_robin" {
		t.Errorf("GetName() = %q", s.GetName())
	}
}
