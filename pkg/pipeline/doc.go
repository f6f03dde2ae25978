// Package pipeline sequences the per-request stages of the edge server.
//
// # Stages
//
// Every request passes, in order, through:
//
//  1. the method allow-list (405 with Allow)
//  2. the per-client token bucket (429 with Retry-After)
//  3. the request size checks (413)
//  4. the virtual host and location router (404 when no host matches)
//  5. a location return, the reverse proxy or the static file server
//
// The handler writes into a buffer. Once it is done the security headers
// are merged (Server last), the body is compressed when it qualifies and the
// response is written in one go. A body larger than server.max_buffered_body
// is sent as it is written instead: the headers are merged first and the body
// goes out uncompressed. Errors from any stage become small HTML
// error pages through StatusFor, so one failed request never tears down a
// keep-alive connection or an HTTP/2 stream.
//
// # Snapshots
//
// A Pipeline holds the state derived from one configuration snapshot:
// router, gate, compressor, upstream registry and the buffering limits of
// the static server and the proxy. A config.Store swap
// rebuilds it and publishes it atomically. Upstream servers keep their
// health and in-flight counts across swaps, and client buckets survive
// when the rate limit settings did not change.
//
// # Telemetry
//
// Request metrics are recorded after the response is written and the access
// log entry is handed to a non-blocking sink.
package pipeline
