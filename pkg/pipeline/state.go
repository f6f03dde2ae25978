package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"mercator-hq/edge/pkg/compression"
	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/limits/ratelimit"
	"mercator-hq/edge/pkg/proxy"
	"mercator-hq/edge/pkg/routing"
	"mercator-hq/edge/pkg/security"
	"mercator-hq/edge/pkg/static"
	"mercator-hq/edge/pkg/upstream"
)

// retireCompressor closes a compressor that a new state replaced once
// requests still holding the old state had time to finish.
var retireCompressor = func(c *compression.Compressor, after time.Duration) {
	time.AfterFunc(after, func() {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close replaced compressor", "error", err)
		}
	})
}

// state is everything derived from one configuration snapshot. It is built
// completely before it is published, so a request sees either the old or
// the new state and never a mix.
type state struct {
	cfg        *config.Config
	router     *routing.Router
	gate       *security.Gate
	compressor *compression.Compressor
	registry   *upstream.Registry
	static     *static.Server
	proxy      *proxy.Proxy
}

// buildState derives a state from cfg. Parts whose configuration did not
// change are carried over from prev: upstream servers keep their health and
// in-flight counts, and clients keep their token buckets. The proxy is base
// with the buffering limit of cfg.
func buildState(cfg *config.Config, prev *state, base *proxy.Proxy) (*state, error) {
	var prevRegistry *upstream.Registry
	if prev != nil {
		prevRegistry = prev.registry
	}
	registry, err := upstream.NewRegistry(cfg.Upstreams, prevRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream pools: %w", err)
	}

	var limiter *ratelimit.ClientLimiter
	switch {
	case !cfg.Security.EnableRateLimiting:
	case prev != nil && prev.gate.Limiter() != nil &&
		security.LimiterConfig(prev.cfg.Security) == security.LimiterConfig(cfg.Security):
		limiter = prev.gate.Limiter()
	default:
		limiter = security.NewLimiter(cfg.Security)
	}

	var compressor *compression.Compressor
	if prev != nil && sameCompression(prev.cfg.Compression, cfg.Compression) {
		compressor = prev.compressor
	} else {
		compressor, err = compression.New(cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("failed to build compressor: %w", err)
		}
	}

	return &state{
		cfg:        cfg,
		router:     routing.NewRouter(cfg.VirtualHosts),
		gate:       security.NewGate(cfg.Security, cfg.Server.ServerHeader, limiter),
		compressor: compressor,
		registry:   registry,
		static:     &static.Server{MaxFileSize: cfg.Server.MaxBufferedBody},
		proxy:      base.WithMaxResponseBytes(cfg.Server.MaxBufferedBody),
	}, nil
}

// retire releases what prev owned and next no longer uses.
func retire(prev, next *state) {
	if prev == nil || prev.compressor == next.compressor {
		return
	}
	retireCompressor(prev.compressor, compressorGrace(prev.cfg.Server))
}

// compressorGrace is how long a request started on an old state may still
// be compressing: its handling deadline plus the time to write the answer.
func compressorGrace(s config.ServerConfig) time.Duration {
	grace := s.RequestTimeout + s.WriteTimeout
	if grace <= 0 {
		grace = config.DefaultRequestTimeout + config.DefaultWriteTimeout
	}
	return grace
}

func sameCompression(a, b config.CompressionConfig) bool {
	return a.EnableGzip == b.EnableGzip &&
		a.EnableBrotli == b.EnableBrotli &&
		a.EnableZstd == b.EnableZstd &&
		a.Level == b.Level &&
		a.MinCompressSize == b.MinCompressSize &&
		slices.Equal(a.CompressTypes, b.CompressTypes)
}
