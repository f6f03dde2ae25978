// Package middleware provides HTTP middleware for cross-cutting concerns of
// the edge request pipeline.
//
// # Middleware Chain
//
// The server wraps the pipeline as:
//
//	handler = Recovery(RequestID(Tracing(Logging(Timeout(pipeline)))))
//
// Recovery is outermost so a panic anywhere below still produces a 500.
// RequestID runs before tracing and logging so both see the ID.
//
// # Request ID
//
// RequestIDMiddleware generates a UUID v4 for each request:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// A client supplied X-Request-ID of up to 128 visible ASCII characters is
// kept. The ID is stored with logging.WithRequestID, so every slog call made
// with the request context includes request_id.
//
// # Error Pages
//
// ErrorPage and WriteErrorPage render the small HTML bodies used for every
// status the edge generates itself (404, 405, 413, 429, 502, ...).
package middleware
