package upstream

import (
	"errors"
	"fmt"
)

// Common upstream errors that can be checked with errors.Is().
var (
	// ErrUnknownUpstream is returned when proxy_pass names a pool that is not configured.
	ErrUnknownUpstream = errors.New("unknown upstream")

	// ErrNoHealthyServers is returned when every server of a pool is unhealthy.
	ErrNoHealthyServers = errors.New("no healthy upstream servers available")

	// ErrSaturated is returned when every healthy server is at max_connections.
	ErrSaturated = errors.New("upstream servers saturated")

	// ErrInvalidServerURL is returned when a configured server is not an absolute URL.
	ErrInvalidServerURL = errors.New("invalid upstream server url")
)

// UnknownUpstreamError reports a proxy_pass target missing from the registry.
type UnknownUpstreamError struct {
	// Name is the requested pool name.
	Name string
}

// Error implements the error interface.
func (e *UnknownUpstreamError) Error() string {
	return fmt.Sprintf("unknown upstream: %s", e.Name)
}

// Is implements error matching for errors.Is().
func (e *UnknownUpstreamError) Is(target error) bool {
	return target == ErrUnknownUpstream
}

// NoHealthyServersError is returned by Pool.Select when no server can take
// the request.
type NoHealthyServersError struct {
	// Pool is the pool name.
	Pool string

	// Total is the number of configured servers.
	Total int

	// Healthy is the number of healthy servers. When it is above zero every
	// healthy server was saturated.
	Healthy int
}

// Error implements the error interface.
func (e *NoHealthyServersError) Error() string {
	if e.Healthy > 0 {
		return fmt.Sprintf("upstream %q: all %d healthy servers at max_connections", e.Pool, e.Healthy)
	}
	return fmt.Sprintf("upstream %q: no healthy servers (total: %d)", e.Pool, e.Total)
}

// Is implements error matching for errors.Is().
func (e *NoHealthyServersError) Is(target error) bool {
	if e.Healthy > 0 {
		return target == ErrSaturated
	}
	return target == ErrNoHealthyServers
}
