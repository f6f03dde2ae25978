package pipeline

import (
	"errors"
	"net/http"

	"mercator-hq/edge/pkg/proxy"
	"mercator-hq/edge/pkg/routing"
	"mercator-hq/edge/pkg/static"
)

// StatusClientClosedRequest is logged when the client went away before a
// response could be produced. It is never seen by a client.
const StatusClientClosedRequest = 499

// StatusFor maps a handler error to the response status.
//
//	static.ErrMethodNotAllowed      405
//	static.ErrBadPath               400
//	static.ErrForbidden             403
//	static.ErrNotFound              404
//	routing.ErrNoVirtualHost        404
//	*http.MaxBytesError             413
//	proxy.ErrRequestBody            400
//	proxy.ErrUpstreamSaturated      503
//	proxy.ErrRequestDeadline        504
//	other upstream failures         502
//	client canceled                 499
//	anything else                   500
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, static.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, static.ErrBadPath):
		return http.StatusBadRequest
	case errors.Is(err, static.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, static.ErrNotFound), errors.Is(err, routing.ErrNoVirtualHost):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, proxy.ErrRequestBody):
		return http.StatusBadRequest
	case errors.Is(err, proxy.ErrRequestDeadline):
		return http.StatusGatewayTimeout
	case errors.Is(err, proxy.ErrClientCanceled):
		return StatusClientClosedRequest
	case errors.Is(err, proxy.ErrUpstreamSaturated):
		return http.StatusServiceUnavailable
	case errors.Is(err, proxy.ErrUnknownUpstream),
		errors.Is(err, proxy.ErrNoHealthyServers),
		errors.Is(err, proxy.ErrUpstreamTimeout),
		errors.Is(err, proxy.ErrUpstreamTransport),
		errors.Is(err, proxy.ErrResponseTruncated):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
