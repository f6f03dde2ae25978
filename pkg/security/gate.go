package security

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/limits/ratelimit"
)

// Gate applies the method allow-list, per-client rate limits, the request
// size limit and response security headers. It is immutable once built.
type Gate struct {
	allowed     map[string]struct{}
	allowHeader string

	maxRequestSize int64

	headers      []header
	serverHeader string

	limiter *ratelimit.ClientLimiter
}

type header struct {
	name  string
	value string
}

// NewGate builds a gate. limiter may be nil, which disables rate limiting.
func NewGate(sec config.SecurityConfig, serverHeader string, limiter *ratelimit.ClientLimiter) *Gate {
	g := &Gate{
		allowed:        make(map[string]struct{}, len(sec.AllowedMethods)),
		maxRequestSize: sec.MaxRequestSize,
		serverHeader:   serverHeader,
		limiter:        limiter,
	}

	methods := make([]string, 0, len(sec.AllowedMethods))
	for _, m := range sec.AllowedMethods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if _, dup := g.allowed[m]; dup || m == "" {
			continue
		}
		g.allowed[m] = struct{}{}
		methods = append(methods, m)
	}
	g.allowHeader = strings.Join(methods, ", ")

	merged := make(map[string]string)
	for name, value := range config.DefaultSecurityHeaders() {
		merged[http.CanonicalHeaderKey(name)] = value
	}
	for name, value := range sec.SecurityHeaders {
		merged[http.CanonicalHeaderKey(name)] = value
	}
	for name, value := range merged {
		// An empty configured value removes a default header.
		if value == "" || strings.EqualFold(name, "Server") {
			continue
		}
		g.headers = append(g.headers, header{name: name, value: value})
	}
	sort.Slice(g.headers, func(i, j int) bool { return g.headers[i].name < g.headers[j].name })

	return g
}

// NewLimiter returns the client limiter described by sec, or nil when rate
// limiting is disabled.
func NewLimiter(sec config.SecurityConfig) *ratelimit.ClientLimiter {
	if !sec.EnableRateLimiting {
		return nil
	}
	return ratelimit.NewClientLimiter(LimiterConfig(sec))
}

// LimiterConfig extracts the rate limiter settings from sec.
func LimiterConfig(sec config.SecurityConfig) ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: sec.RateLimitRequestsPerSecond,
		Burst:             sec.RateLimitBurst,
		IdleTTL:           sec.RateLimitIdleTTL,
		MaxClients:        sec.RateLimitMaxClients,
	}
}

// MethodAllowed reports whether method is on the allow-list.
func (g *Gate) MethodAllowed(method string) bool {
	_, ok := g.allowed[method]
	return ok
}

// AllowHeader is the value sent in Allow with 405 responses.
func (g *Gate) AllowHeader() string {
	return g.allowHeader
}

// CheckRequestSize reports whether a declared Content-Length is acceptable.
// Unknown lengths (-1, chunked bodies) pass; the body reader enforces
// client_max_body_size for those.
func (g *Gate) CheckRequestSize(contentLength int64) bool {
	if contentLength < 0 || g.maxRequestSize <= 0 {
		return true
	}
	return contentLength <= g.maxRequestSize
}

// CheckRateLimit takes a token for client. With rate limiting disabled
// every request is allowed.
func (g *Gate) CheckRateLimit(client string) ratelimit.CheckResult {
	if g.limiter == nil {
		return ratelimit.CheckResult{Allowed: true, Limit: -1, Remaining: -1}
	}
	return g.limiter.Allow(client)
}

// Limiter returns the client limiter, or nil when rate limiting is off.
func (g *Gate) Limiter() *ratelimit.ClientLimiter {
	return g.limiter
}

// ApplyHeaders sets the security headers on h, then Server.
func (g *Gate) ApplyHeaders(h http.Header) {
	for _, hdr := range g.headers {
		h.Set(hdr.name, hdr.value)
	}
	if g.serverHeader != "" {
		h.Set("Server", g.serverHeader)
	}
}

// RetryAfterSeconds renders a Retry-After value, at least one second.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
