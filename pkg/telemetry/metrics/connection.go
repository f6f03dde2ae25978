package metrics

import (
	"mercator-hq/edge/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionMetrics tracks client connections.
//
// Metrics:
//   - edge_active_connections
//   - edge_connections_total{listener}
//   - edge_negotiated_protocols_total{protocol}
type ConnectionMetrics struct {
	active    prometheus.Gauge
	accepted  *prometheus.CounterVec
	protocols *prometheus.CounterVec
}

// NewConnectionMetrics creates and registers connection metrics with the provided registry.
func NewConnectionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ConnectionMetrics {
	cm := &ConnectionMetrics{
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_connections",
				Help:      "Number of open client connections",
			},
		),

		accepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "connections_total",
				Help:      "Total number of accepted client connections",
			},
			[]string{"listener"},
		),

		protocols: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "negotiated_protocols_total",
				Help:      "Total number of connections by negotiated application protocol",
			},
			[]string{"protocol"},
		),
	}

	registry.MustRegister(cm.active, cm.accepted, cm.protocols)
	return cm
}

// Opened records a new connection on listener.
func (cm *ConnectionMetrics) Opened(listener string) {
	cm.active.Inc()
	cm.accepted.WithLabelValues(listener).Inc()
}

// Closed records a closed connection.
func (cm *ConnectionMetrics) Closed() {
	cm.active.Dec()
}
