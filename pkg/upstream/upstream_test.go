package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/telemetry/metrics"
)

func TestNewServer(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"http://127.0.0.1:8080", false},
		{"https://backend.internal/base", false},
		{"127.0.0.1:8080", true},
		{"ftp://host", true},
		{"http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s, err := NewServer(tt.raw, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewServer(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidServerURL) {
					t.Errorf("expected ErrInvalidServerURL, got %v", err)
				}
				return
			}
			if !s.Healthy() {
				t.Error("servers must start healthy")
			}
			if !s.LastProbe().IsZero() {
				t.Error("LastProbe should be zero before the first probe")
			}
		})
	}
}

func TestServer_Thresholds(t *testing.T) {
	s, _ := NewServer("http://a", 0)
	now := time.Now()

	// Two failures are needed with an unhealthy threshold of 2.
	if s.recordProbe(false, now, 2, 2) {
		t.Error("first failure should not change health")
	}
	if !s.recordProbe(false, now, 2, 2) || s.Healthy() {
		t.Fatal("second failure should mark unhealthy")
	}

	// A success resets failures but needs a second one to recover.
	if s.recordProbe(true, now, 2, 2) || s.Healthy() {
		t.Fatal("one success should not recover with threshold 2")
	}
	if !s.recordProbe(true, now, 2, 2) || !s.Healthy() {
		t.Fatal("second success should mark healthy")
	}
	if s.LastProbe().UnixNano() != now.UnixNano() {
		t.Errorf("LastProbe = %v, want %v", s.LastProbe(), now)
	}
}

func TestServer_MarkUnhealthy(t *testing.T) {
	s, _ := NewServer("http://a", 0)
	if !s.MarkUnhealthy() {
		t.Error("MarkUnhealthy should report previous healthy state")
	}
	if s.Healthy() {
		t.Error("server should be unhealthy")
	}
	if s.MarkUnhealthy() {
		t.Error("second MarkUnhealthy should report false")
	}
}

func TestPool_Select(t *testing.T) {
	pool, err := NewPool("api", config.UpstreamConfig{
		Servers:        []string{"http://a", "http://b"},
		LoadBalancing:  config.LoadBalancingRoundRobin,
		MaxConnections: 1,
	}, nil)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	first, err := pool.Select()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := pool.Select()
	if first == second {
		t.Error("round robin should alternate servers")
	}

	// Saturate a, mark b unhealthy.
	a, b := pool.Servers()[0], pool.Servers()[1]
	if !a.Acquire() {
		t.Fatal("Acquire failed")
	}
	b.MarkUnhealthy()

	_, err = pool.Select()
	if !errors.Is(err, ErrSaturated) {
		t.Fatalf("expected ErrSaturated, got %v", err)
	}

	a.Release()
	got, err := pool.Select()
	if err != nil || got != a {
		t.Fatalf("Select() = %v, %v; want a", got, err)
	}

	a.MarkUnhealthy()
	_, err = pool.Select()
	if !errors.Is(err, ErrNoHealthyServers) {
		t.Fatalf("expected ErrNoHealthyServers, got %v", err)
	}
	var nhs *NoHealthyServersError
	if !errors.As(err, &nhs) || nhs.Pool != "api" || nhs.Total != 2 {
		t.Errorf("unexpected error detail: %+v", nhs)
	}
}

func TestNewPool_InvalidStrategy(t *testing.T) {
	_, err := NewPool("api", config.UpstreamConfig{Servers: []string{"http://a"}, LoadBalancing: "weighted"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestRegistry(t *testing.T) {
	upstreams := map[string]config.UpstreamConfig{
		"api": {Servers: []string{"http://a", "http://b"}},
		"web": {Servers: []string{"http://c"}, LoadBalancing: config.LoadBalancingLeastConnections},
	}

	reg, err := NewRegistry(upstreams, nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "api" || got[1] != "web" {
		t.Errorf("Names() = %v", got)
	}
	if _, err := reg.Get("missing"); !errors.Is(err, ErrUnknownUpstream) {
		t.Errorf("expected ErrUnknownUpstream, got %v", err)
	}

	api, _ := reg.Get("api")
	api.Servers()[0].MarkUnhealthy()

	// Reload keeps server state for unchanged URLs.
	upstreams["api"] = config.UpstreamConfig{Servers: []string{"http://a", "http://d"}}
	next, err := NewRegistry(upstreams, reg)
	if err != nil {
		t.Fatal(err)
	}
	nextAPI, _ := next.Get("api")
	if nextAPI.Servers()[0] != api.Servers()[0] {
		t.Error("server a should be reused across registries")
	}
	if nextAPI.Servers()[0].Healthy() {
		t.Error("reused server should keep its unhealthy verdict")
	}
	if !nextAPI.Servers()[1].Healthy() {
		t.Error("new server should start healthy")
	}
}

func TestHealthChecker_Tick(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var hits atomic.Int32

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("probe path = %q, want /healthz", r.URL.Path)
		}
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer backend.Close()

	upstreams := map[string]config.UpstreamConfig{
		"api": {
			Servers: []string{backend.URL},
			HealthCheck: &config.HealthCheckConfig{
				Path:               "/healthz",
				Interval:           10 * time.Second,
				Timeout:            time.Second,
				HealthyThreshold:   1,
				UnhealthyThreshold: 1,
			},
		},
		"unchecked": {Servers: []string{"http://127.0.0.1:1"}},
	}
	reg, err := NewRegistry(upstreams, nil)
	if err != nil {
		t.Fatal(err)
	}

	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "edge"}, promReg)
	hc := NewHealthChecker(func() *Registry { return reg }, collector)
	ctx := context.Background()
	now := time.Now()

	if n := hc.Tick(ctx, now); n != 1 {
		t.Fatalf("first Tick probed %d servers, want 1", n)
	}

	// Interval has not elapsed.
	if n := hc.Tick(ctx, now.Add(time.Second)); n != 0 {
		t.Errorf("Tick before interval probed %d servers, want 0", n)
	}

	status.Store(http.StatusServiceUnavailable)
	hc.Tick(ctx, now.Add(11*time.Second))

	pool, _ := reg.Get("api")
	srv := pool.Servers()[0]
	if srv.Healthy() {
		t.Error("server should be unhealthy after a 503 probe")
	}
	expected := `
# HELP edge_upstream_healthy Upstream server health (1=healthy, 0=unhealthy)
# TYPE edge_upstream_healthy gauge
edge_upstream_healthy{server="` + backend.URL + `",upstream="api"} 0
`
	if err := testutil.GatherAndCompare(promReg, strings.NewReader(expected), "edge_upstream_healthy"); err != nil {
		t.Errorf("unexpected upstream_healthy: %v", err)
	}
	if err := hc.ReadinessCheck()(ctx); !errors.Is(err, ErrNoHealthyServers) {
		t.Errorf("ReadinessCheck() = %v, want ErrNoHealthyServers", err)
	}

	// Redirects count as healthy.
	status.Store(http.StatusFound)
	hc.Tick(ctx, now.Add(22*time.Second))
	if !srv.Healthy() {
		t.Error("server should recover after a 3xx probe")
	}
	if err := hc.ReadinessCheck()(ctx); err != nil {
		t.Errorf("ReadinessCheck() = %v, want nil", err)
	}
	if hits.Load() != 3 {
		t.Errorf("backend saw %d probes, want 3", hits.Load())
	}
}

func TestHealthChecker_ProbeTimeout(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer backend.Close()

	reg, _ := NewRegistry(map[string]config.UpstreamConfig{
		"slow": {
			Servers: []string{backend.URL},
			HealthCheck: &config.HealthCheckConfig{
				Path: "/", Interval: time.Second, Timeout: 50 * time.Millisecond,
				HealthyThreshold: 1, UnhealthyThreshold: 1,
			},
		},
	}, nil)

	hc := NewHealthChecker(func() *Registry { return reg }, nil)
	hc.Tick(context.Background(), time.Now())

	pool, _ := reg.Get("slow")
	if pool.Servers()[0].Healthy() {
		t.Error("timed out probe should mark the server unhealthy")
	}
	if pool.Servers()[0].LastProbe().IsZero() {
		t.Error("LastProbe should be set even when the probe fails")
	}
}
