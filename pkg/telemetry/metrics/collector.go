package metrics

import (
	"sync"
	"time"

	"mercator-hq/edge/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRequestDurationBuckets covers static hits in the sub-millisecond
// range up to slow upstreams.
var DefaultRequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// maxMethodLabels bounds the method label. Requests rejected with 405 can
// carry arbitrary method tokens.
const maxMethodLabels = 32

// Collector owns every Prometheus metric exported by the edge server.
// All methods are safe on a nil *Collector, which records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics    *RequestMetrics
	upstreamMetrics   *UpstreamMetrics
	connectionMetrics *ConnectionMetrics

	methods *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh one is created.
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	admin.Handle(cfg.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Copy so defaults do not leak into the shared config snapshot.
	local := *cfg
	if local.Namespace == "" {
		local.Namespace = config.DefaultMetricsNamespace
	}
	if len(local.RequestDurationBuckets) == 0 {
		local.RequestDurationBuckets = DefaultRequestDurationBuckets
	}

	c := &Collector{
		config:   &local,
		registry: registry,
		methods:  NewCardinalityLimiter(maxMethodLabels),
	}

	c.requestMetrics = NewRequestMetrics(&local, registry)
	c.upstreamMetrics = NewUpstreamMetrics(&local, registry)
	c.connectionMetrics = NewConnectionMetrics(&local, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records a completed client request.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration, requestBytes, responseBytes int64) {
	if !c.enabled() {
		return
	}
	if !c.methods.Allow(method) {
		method = "OTHER"
	}
	c.requestMetrics.RecordRequest(method, status, duration, requestBytes, responseBytes)
}

// RecordRateLimited counts a request rejected with 429.
func (c *Collector) RecordRateLimited() {
	if !c.enabled() {
		return
	}
	c.requestMetrics.rateLimited.Inc()
}

// RecordCompressed counts a response compressed with encoding.
func (c *Collector) RecordCompressed(encoding string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.compressed.WithLabelValues(encoding).Inc()
}

// RecordStreamed counts a response whose body exceeded the buffering limit.
func (c *Collector) RecordStreamed() {
	if !c.enabled() {
		return
	}
	c.requestMetrics.streamed.Inc()
}

// RecordUpstream records the outcome of a forwarded request. result is
// one of "success", "timeout", "error" or "no_healthy".
func (c *Collector) RecordUpstream(upstream, result string, latency time.Duration) {
	if !c.enabled() {
		return
	}
	c.upstreamMetrics.RecordRequest(upstream, result, latency)
}

// UpdateUpstreamHealth sets the health gauge of one upstream server.
func (c *Collector) UpdateUpstreamHealth(upstream, server string, healthy bool) {
	if !c.enabled() {
		return
	}
	c.upstreamMetrics.UpdateHealth(upstream, server, healthy)
}

// ConnectionOpened records an accepted client connection.
func (c *Collector) ConnectionOpened(listener string) {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.Opened(listener)
}

// ConnectionClosed records a closed client connection.
func (c *Collector) ConnectionClosed() {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.Closed()
}

// RecordProtocol counts a negotiated application protocol ("h2",
// "http/1.1" or "rejected").
func (c *Collector) RecordProtocol(protocol string) {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.protocols.WithLabelValues(protocol).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique values a label may take.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under
// the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
