// Package metrics provides Prometheus metrics for the edge server.
//
// All metric names carry the configured namespace ("edge" by default):
//
//   - edge_requests_total{method,status}
//   - edge_request_duration_seconds{method}
//   - edge_request_bytes_total, edge_response_bytes_total
//   - edge_rate_limited_total
//   - edge_compressed_responses_total{encoding}
//   - edge_streamed_responses_total
//   - edge_upstream_requests_total{upstream,result}
//   - edge_upstream_latency_seconds{upstream}
//   - edge_upstream_healthy{upstream,server}
//   - edge_active_connections, edge_connections_total{listener}
//   - edge_negotiated_protocols_total{protocol}
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	collector.RecordRequest("GET", 200, elapsed, 0, 512)
//	mux.Handle(cfg.Metrics.Path, collector.Handler())
package metrics
