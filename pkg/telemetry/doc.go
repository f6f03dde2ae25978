// Package telemetry groups the observability packages of the edge server.
//
//   - logging: slog setup and request scoped log fields
//   - metrics: Prometheus collector served on the admin listener
//   - tracing: OpenTelemetry spans and W3C propagation to upstreams
//   - health: liveness and readiness probes
//   - accesslog: per request access records (file, stdout, SQLite)
package telemetry
