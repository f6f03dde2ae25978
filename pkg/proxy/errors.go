package proxy

import (
	"errors"
	"fmt"

	"mercator-hq/edge/pkg/upstream"
)

// Errors returned by Forward, checkable with errors.Is(). Every one of them
// except ErrResponseTruncated leaves the client response unwritten.
var (
	// ErrUnknownUpstream is returned when proxy_pass names no configured pool.
	ErrUnknownUpstream = upstream.ErrUnknownUpstream

	// ErrNoHealthyServers is returned when the pool has no healthy server.
	ErrNoHealthyServers = upstream.ErrNoHealthyServers

	// ErrUpstreamSaturated is returned when every healthy server is at its
	// max_connections cap.
	ErrUpstreamSaturated = upstream.ErrSaturated

	// ErrUpstreamTimeout is returned when the upstream did not answer within
	// the pool read_timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamTransport is returned for connection and protocol failures.
	ErrUpstreamTransport = errors.New("upstream transport failure")

	// ErrRequestBody is returned when the client body could not be read,
	// for example because it exceeded client_max_body_size.
	ErrRequestBody = errors.New("client request body failed")

	// ErrClientCanceled is returned when the client went away mid-request.
	// The upstream is not blamed for it.
	ErrClientCanceled = errors.New("client canceled request")

	// ErrRequestDeadline is joined to an ErrUpstreamTimeout when the
	// request_timeout deadline expired rather than the pool read_timeout.
	ErrRequestDeadline = errors.New("request deadline exceeded")

	// ErrResponseTruncated is returned when a body too large to buffer broke
	// off after the status and headers were sent. The server stays healthy.
	ErrResponseTruncated = errors.New("upstream response truncated")
)

// UpstreamError describes a failed exchange with one upstream server.
type UpstreamError struct {
	// Upstream is the pool name.
	Upstream string

	// Server is the base URL of the server that was tried.
	Server string

	// Kind is ErrUpstreamTimeout, ErrUpstreamTransport, ErrRequestBody,
	// ErrClientCanceled or ErrResponseTruncated.
	Kind error

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %q server %s: %v: %v", e.Upstream, e.Server, e.Kind, e.Err)
}

// Is implements error matching for errors.Is().
func (e *UpstreamError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}
