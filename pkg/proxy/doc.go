// Package proxy forwards requests to upstream pools.
//
// # Request Flow
//
// Forward resolves the pool named by proxy_pass, asks it for a server
// (health and capacity filtered, then balanced by the pool strategy) and
// holds one of the server's connection slots for the length of the exchange:
//
//	pool.Select -> srv.Acquire -> rewrite -> RoundTrip -> read body -> srv.Release
//
// The outgoing request keeps method, path, query and body. The scheme and
// authority come from the server URL, and a server base path is prefixed.
// Hop-by-hop headers (Connection, Upgrade, Proxy-Connection, Keep-Alive, TE,
// Trailer, Transfer-Encoding and anything listed in Connection) are removed
// in both directions. X-Forwarded-For, X-Forwarded-Proto and
// X-Forwarded-Host are added when the client did not send them, and the
// W3C trace context of the request span is injected.
//
// # Failures
//
// An upstream body up to MaxResponseBytes is buffered before anything
// reaches the client. Every failure before that point returns an error with
// the response untouched:
//
//   - ErrUnknownUpstream: proxy_pass names no pool
//   - ErrNoHealthyServers: every server is unhealthy
//   - ErrUpstreamSaturated: every healthy server is at max_connections
//   - ErrUpstreamTimeout: no answer within read_timeout, or before the
//     request deadline (joined with ErrRequestDeadline)
//   - ErrUpstreamTransport: dial, TLS or protocol failure
//   - ErrRequestBody: the client body failed or exceeded its limit
//   - ErrClientCanceled: the client went away first
//
// A larger body is streamed as it arrives, without compression. If it
// breaks off the error is ErrResponseTruncated and the status already sent
// stands.
//
// Timeouts and transport failures mark the server unhealthy. It returns to
// rotation when the health checker sees it pass again.
//
// # Metrics
//
// Each call records edge_upstream_requests_total{upstream,result} and the
// upstream latency histogram.
package proxy
