package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/telemetry/health"
	"mercator-hq/edge/pkg/telemetry/metrics"
)

// probeBodyLimit bounds how much of a probe response body is drained.
const probeBodyLimit = 64 * 1024

// HealthChecker actively probes the servers of every pool that configures
// a health_check. It reads the registry through a function so that it
// always probes the pools of the current configuration snapshot.
type HealthChecker struct {
	registry func() *Registry
	client   *http.Client
	metrics  *metrics.Collector

	// UserAgent is sent with every probe.
	UserAgent string
}

// NewHealthChecker creates a checker over the registry returned by
// registry. A nil collector disables health metrics.
func NewHealthChecker(registry func() *Registry, collector *metrics.Collector) *HealthChecker {
	return &HealthChecker{
		registry: registry,
		client: &http.Client{
			// Probes judge the first response; redirects count as healthy.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		metrics:   collector,
		UserAgent: config.DefaultServerHeader + " health-check",
	}
}

// Run calls Tick every interval until ctx is cancelled.
func (hc *HealthChecker) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Second
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	slog.Info("health checker started", "interval", every)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("health checker stopped (context cancelled)")
			return
		case now := <-ticker.C:
			hc.Tick(ctx, now)
		}
	}
}

// Tick performs one sweep. Every server of a pool with a health check whose
// interval has elapsed since its last probe is probed; probes run
// concurrently and Tick returns when all of them finished. It returns the
// number of probes performed.
func (hc *HealthChecker) Tick(ctx context.Context, now time.Time) int {
	reg := hc.registry()
	if reg == nil {
		return 0
	}

	var wg sync.WaitGroup
	probes := 0

	for _, name := range reg.Names() {
		pool := reg.pools[name]
		check := pool.cfg.HealthCheck
		if check == nil {
			continue
		}
		for _, srv := range pool.servers {
			if !srv.probeDue(now, check.Interval) {
				continue
			}
			probes++
			wg.Add(1)
			go func(pool *Pool, srv *Server, check *config.HealthCheckConfig) {
				defer wg.Done()
				hc.probe(ctx, pool, srv, check, now)
			}(pool, srv, check)
		}
	}

	wg.Wait()
	return probes
}

func (hc *HealthChecker) probe(ctx context.Context, pool *Pool, srv *Server, check *config.HealthCheckConfig, now time.Time) {
	probeCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	err := hc.doProbe(probeCtx, srv, check.Path)
	latency := time.Since(start)

	changed := srv.recordProbe(err == nil, now, check.HealthyThreshold, check.UnhealthyThreshold)
	hc.metrics.UpdateUpstreamHealth(pool.name, srv.Address(), srv.Healthy())

	switch {
	case changed && srv.Healthy():
		slog.Info("upstream server marked healthy",
			"upstream", pool.name,
			"server", srv.Address(),
			"latency", latency,
		)
	case changed:
		slog.Warn("upstream server marked unhealthy",
			"upstream", pool.name,
			"server", srv.Address(),
			"error", err,
		)
	case err != nil:
		slog.Debug("health check failed",
			"upstream", pool.name,
			"server", srv.Address(),
			"error", err,
		)
	default:
		slog.Debug("health check passed",
			"upstream", pool.name,
			"server", srv.Address(),
			"latency", latency,
		)
	}
}

// doProbe sends GET base+path. Any 2xx or 3xx status is a success.
func (hc *HealthChecker) doProbe(ctx context.Context, srv *Server, path string) error {
	u := srv.URL()
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", hc.UserAgent)

	resp, err := hc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, probeBodyLimit))

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ReadinessCheck reports an error while any pool with servers has none
// healthy. It is registered with the health checker as "upstreams".
func (hc *HealthChecker) ReadinessCheck() health.CheckFunc {
	return func(ctx context.Context) error {
		reg := hc.registry()
		if reg == nil {
			return nil
		}
		var errs []error
		for _, name := range reg.Names() {
			pool := reg.pools[name]
			if len(pool.servers) > 0 && pool.HealthyCount() == 0 {
				errs = append(errs, &NoHealthyServersError{Pool: name, Total: len(pool.servers)})
			}
		}
		return errors.Join(errs...)
	}
}
