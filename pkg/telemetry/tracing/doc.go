// Package tracing provides OpenTelemetry distributed tracing for the edge
// server.
//
// Every request handled by the pipeline gets a server span. Trace context
// arriving in a traceparent header is continued, and the context of the
// current span is injected into requests forwarded to upstreams, so a
// single trace covers client, edge and backend.
//
// Spans are exported over OTLP gRPC:
//
//	tracing:
//	  enabled: true
//	  endpoint: "otel-collector:4317"
//	  sampler: parent_ratio
//	  sample_ratio: 0.1
//	  otlp:
//	    insecure: true
//
// # Samplers
//
//   - always: record every trace
//   - never: record nothing, but still propagate context
//   - ratio: record a fraction of traces by trace ID
//   - parent_ratio: honour the client's sampled flag, ratio otherwise
package tracing
