package metrics

import (
	"time"

	"mercator-hq/edge/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks forwarded requests and backend health.
//
// Metrics:
//   - edge_upstream_requests_total{upstream,result}
//   - edge_upstream_latency_seconds{upstream}
//   - edge_upstream_healthy{upstream,server} (1=healthy, 0=unhealthy)
type UpstreamMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	healthy  *prometheus.GaugeVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_requests_total",
				Help:      "Total number of requests forwarded to upstreams by result",
			},
			[]string{"upstream", "result"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream round trip latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"upstream"},
		),

		healthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_healthy",
				Help:      "Upstream server health (1=healthy, 0=unhealthy)",
			},
			[]string{"upstream", "server"},
		),
	}

	registry.MustRegister(
		um.requests,
		um.latency,
		um.healthy,
	)

	return um
}

// RecordRequest records one forwarded request.
func (um *UpstreamMetrics) RecordRequest(upstream, result string, latency time.Duration) {
	um.requests.WithLabelValues(upstream, result).Inc()
	if latency > 0 {
		um.latency.WithLabelValues(upstream).Observe(latency.Seconds())
	}
}

// UpdateHealth sets the health gauge for one server.
func (um *UpstreamMetrics) UpdateHealth(upstream, server string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	um.healthy.WithLabelValues(upstream, server).Set(value)
}
