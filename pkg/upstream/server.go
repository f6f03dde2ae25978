package upstream

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/edge/pkg/limits/ratelimit"
)

// Server is one backend of a pool. Its URL never changes; health and load
// are updated atomically by the proxy and the health checker.
type Server struct {
	raw string
	url *url.URL

	healthy atomic.Bool
	conns   *ratelimit.ConcurrentLimiter

	// lastProbe is unix nanoseconds of the last probe, 0 before the first.
	lastProbe atomic.Int64

	// mu guards the consecutive result counters.
	mu        sync.Mutex
	successes int
	failures  int
}

// NewServer parses an absolute base URL. maxConns caps in-flight requests;
// zero means unlimited. Servers start healthy.
func NewServer(rawURL string, maxConns int64) (*Server, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidServerURL, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w %q: scheme and host are required", ErrInvalidServerURL, rawURL)
	}

	s := &Server{
		raw:   rawURL,
		url:   u,
		conns: ratelimit.NewConcurrentLimiter(maxConns),
	}
	s.healthy.Store(true)
	return s, nil
}

// Address returns the configured URL string.
func (s *Server) Address() string {
	return s.raw
}

// URL returns a copy of the parsed base URL.
func (s *Server) URL() *url.URL {
	u := *s.url
	return &u
}

// Healthy reports the current health verdict.
func (s *Server) Healthy() bool {
	return s.healthy.Load()
}

// Saturated reports whether the server is at max_connections.
func (s *Server) Saturated() bool {
	return s.conns.Saturated()
}

// InFlight returns the number of requests currently forwarded to the server.
func (s *Server) InFlight() int64 {
	return s.conns.Current()
}

// Acquire takes an in-flight slot. It fails when the server is saturated.
// A successful Acquire must be paired with Release.
func (s *Server) Acquire() bool {
	return s.conns.Acquire()
}

// Release returns a slot taken by Acquire.
func (s *Server) Release() {
	s.conns.Release()
}

// LastProbe returns the time of the last health probe, or the zero time.
func (s *Server) LastProbe() time.Time {
	ns := s.lastProbe.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// MarkUnhealthy records a forwarding failure. It reports whether the
// server was healthy before.
func (s *Server) MarkUnhealthy() bool {
	s.mu.Lock()
	s.successes = 0
	s.mu.Unlock()
	return s.healthy.Swap(false)
}

// probeDue reports whether interval has elapsed since the last probe.
func (s *Server) probeDue(now time.Time, interval time.Duration) bool {
	last := s.lastProbe.Load()
	return last == 0 || now.Sub(time.Unix(0, last)) >= interval
}

// recordProbe applies a probe result and reports whether the health
// verdict changed. The probe time is recorded regardless of the outcome.
func (s *Server) recordProbe(ok bool, now time.Time, healthyThreshold, unhealthyThreshold int) bool {
	s.lastProbe.Store(now.UnixNano())

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.successes++
		s.failures = 0
		if !s.healthy.Load() && s.successes >= max(healthyThreshold, 1) {
			s.healthy.Store(true)
			return true
		}
		return false
	}

	s.failures++
	s.successes = 0
	if s.healthy.Load() && s.failures >= max(unhealthyThreshold, 1) {
		s.healthy.Store(false)
		return true
	}
	return false
}
