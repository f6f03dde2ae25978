package metrics

import (
	"strconv"
	"time"

	"mercator-hq/edge/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks client facing request handling.
//
// Metrics:
//   - edge_requests_total{method,status}
//   - edge_request_duration_seconds{method}
//   - edge_request_bytes_total
//   - edge_response_bytes_total
//   - edge_rate_limited_total
//   - edge_compressed_responses_total{encoding}
//   - edge_streamed_responses_total
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestBytes    prometheus.Counter
	responseBytes   prometheus.Counter
	rateLimited     prometheus.Counter
	compressed      *prometheus.CounterVec
	streamed        prometheus.Counter
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests handled",
			},
			[]string{"method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Time from request receipt to response write in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"method"},
		),

		requestBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_bytes_total",
				Help:      "Total declared request body bytes received",
			},
		),

		responseBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "response_bytes_total",
				Help:      "Total response body bytes sent",
			},
		),

		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),

		compressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compressed_responses_total",
				Help:      "Total number of compressed responses by encoding",
			},
			[]string{"encoding"},
		),

		streamed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "streamed_responses_total",
				Help:      "Total number of responses too large to buffer, sent uncompressed",
			},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.requestBytes,
		rm.responseBytes,
		rm.rateLimited,
		rm.compressed,
		rm.streamed,
	)

	return rm
}

// RecordRequest records metrics for a completed request.
func (rm *RequestMetrics) RecordRequest(method string, status int, duration time.Duration, requestBytes, responseBytes int64) {
	rm.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(method).Observe(duration.Seconds())

	if requestBytes > 0 {
		rm.requestBytes.Add(float64(requestBytes))
	}
	if responseBytes > 0 {
		rm.responseBytes.Add(float64(responseBytes))
	}
}
