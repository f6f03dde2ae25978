// Package server accepts client connections and multiplexes them onto the
// HTTP/1.1 and HTTP/2 loops.
//
// # Connection Flow
//
// Every configured listener is capped with netutil.LimitListener at
// server.max_connections. Each accepted connection gets its own goroutine:
//
//	accept -> TCP_NODELAY -> [TLS handshake] -> NegotiatedProtocol
//	    "h2"               -> http2.Server.ServeConn
//	    "http/1.1" or ""   -> shared http.Server (keep-alive)
//	    anything else      -> closed, logged
//
// Plaintext listeners always use the HTTP/1.1 loop. The handshake is
// bounded by read_header_timeout. Accept errors are retried with backoff;
// handshake and protocol errors end only their connection.
//
// The HTTP/1.1 loop is one http.Server reading from an in-process listener
// fed by the dispatcher, so the keep-alive, header and idle timeouts of
// net/http apply unchanged.
//
// # Graceful Shutdown
//
// Cancelling the Serve context (SIGINT, SIGTERM) starts shutdown:
//
//  1. readiness switches to draining
//  2. listeners stop accepting
//  3. HTTP/1.1 idle connections close and HTTP/2 connections get GOAWAY
//  4. in-flight requests get shutdown_timeout to finish
//
// # Admin Listener
//
// Admin serves /metrics and the /health/live, /health/ready and /version
// endpoints on a separate, normally private, address.
package server
