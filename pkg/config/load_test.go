package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listeners:
    - address: "0.0.0.0:8080"
    - address: "0.0.0.0:8443"
      tls: true
  request_timeout: "15s"
tls:
  cert_file: certs/cert.pem
  key_file: certs/key.pem
logging:
  level: debug
  format: text
upstreams:
  api:
    servers: ["http://127.0.0.1:9001", "http://127.0.0.1:9002"]
    load_balancing: least_connections
    health_check:
      path: /healthz
virtual_hosts:
  example.com:
    server_names: ["example.com", "*.example.com"]
    document_root: /srv/www
    locations:
      /api/:
        proxy_pass: api
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Server.Listeners) != 2 {
		t.Fatalf("expected 2 listeners, got %d", len(cfg.Server.Listeners))
	}
	if !cfg.Server.Listeners[1].TLS {
		t.Error("expected second listener to be TLS")
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("expected request timeout %v, got %v", 15*time.Second, cfg.Server.RequestTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Logging.Level)
	}

	api, ok := cfg.Upstreams["api"]
	if !ok {
		t.Fatal("expected api upstream")
	}
	if api.LoadBalancing != LoadBalancingLeastConnections {
		t.Errorf("expected load balancing %q, got %q", LoadBalancingLeastConnections, api.LoadBalancing)
	}
	if api.ReadTimeout != DefaultUpstreamReadTime {
		t.Errorf("expected default read timeout %v, got %v", DefaultUpstreamReadTime, api.ReadTimeout)
	}
	if api.HealthCheck.Interval != DefaultHealthCheckEvery {
		t.Errorf("expected default interval %v, got %v", DefaultHealthCheckEvery, api.HealthCheck.Interval)
	}

	vh := cfg.VirtualHosts["example.com"]
	if len(vh.IndexFiles) != 1 || vh.IndexFiles[0] != DefaultIndexFile {
		t.Errorf("expected default index files, got %v", vh.IndexFiles)
	}
	if vh.Locations["/api/"].ProxyPass != "api" {
		t.Errorf("expected /api/ to proxy to api, got %q", vh.Locations["/api/"].ProxyPass)
	}
}

func TestLoadConfig_DefaultsSurviveOmittedFields(t *testing.T) {
	path := writeConfig(t, `
compression:
  enable_zstd: true
security:
  security_headers:
    X-Frame-Options: SAMEORIGIN
    Referrer-Policy: no-referrer
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Compression.EnableGzip || !cfg.Compression.EnableBrotli {
		t.Error("expected gzip and brotli to stay enabled")
	}
	if !cfg.Compression.EnableZstd {
		t.Error("expected zstd to be enabled")
	}
	if !cfg.Security.EnableRateLimiting {
		t.Error("expected rate limiting to stay enabled")
	}
	if !cfg.Server.TCPNoDelay {
		t.Error("expected tcp_nodelay to stay enabled")
	}

	headers := cfg.Security.SecurityHeaders
	if headers["X-Frame-Options"] != "SAMEORIGIN" {
		t.Errorf("expected configured header to override default, got %q", headers["X-Frame-Options"])
	}
	if headers["Referrer-Policy"] != "no-referrer" {
		t.Errorf("expected configured header to be added, got %q", headers["Referrer-Policy"])
	}
	if headers["X-Content-Type-Options"] != "nosniff" {
		t.Errorf("expected built-in header to be kept, got %q", headers["X-Content-Type-Options"])
	}
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
security:
  enable_rate_limiting: false
compression:
  enable_gzip: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Security.EnableRateLimiting {
		t.Error("expected rate limiting to be disabled")
	}
	if cfg.Compression.EnableGzip {
		t.Error("expected gzip to be disabled")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/edge.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
upstreams:
  empty:
    servers: []
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
`)

	t.Setenv("EDGE_LOGGING_LEVEL", "warn")
	t.Setenv("EDGE_SECURITY_RATE_LIMIT_BURST", "5")
	t.Setenv("EDGE_SERVER_LISTEN", "127.0.0.1:8081, 127.0.0.1:8082")
	t.Setenv("EDGE_COMPRESSION_ENABLE_ZSTD", "true")
	t.Setenv("EDGE_SERVER_SHUTDOWN_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level %q, got %q", "warn", cfg.Logging.Level)
	}
	if cfg.Security.RateLimitBurst != 5 {
		t.Errorf("expected burst 5, got %d", cfg.Security.RateLimitBurst)
	}
	if len(cfg.Server.Listeners) != 2 || cfg.Server.Listeners[1].Address != "127.0.0.1:8082" {
		t.Errorf("unexpected listeners %+v", cfg.Server.Listeners)
	}
	if !cfg.Compression.EnableZstd {
		t.Error("expected zstd enabled from env")
	}
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("expected malformed duration to be ignored, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestDefaultWithListen(t *testing.T) {
	cfg := DefaultWithListen("127.0.0.1:9999")
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Server.Listeners[0].Address != "127.0.0.1:9999" {
		t.Errorf("expected address %q, got %q", "127.0.0.1:9999", cfg.Server.Listeners[0].Address)
	}
}

func TestDefault_MatchesConstants(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"max_connections", cfg.Server.MaxConnections, DefaultMaxConnections},
		{"keep_alive_timeout", cfg.Server.KeepAliveTimeout, DefaultKeepAliveTimeout},
		{"client_max_body_size", cfg.Server.ClientMaxBodySize, int64(DefaultClientMaxBodySize)},
		{"max_buffered_body", cfg.Server.MaxBufferedBody, int64(DefaultMaxBufferedBody)},
		{"rate_limit_rps", cfg.Security.RateLimitRequestsPerSecond, DefaultRateLimitRPS},
		{"rate_limit_burst", cfg.Security.RateLimitBurst, DefaultRateLimitBurst},
		{"max_request_size", cfg.Security.MaxRequestSize, DefaultMaxRequestSize},
		{"compression_level", cfg.Compression.Level, DefaultCompressionLevel},
		{"min_compress_size", cfg.Compression.MinCompressSize, DefaultMinCompressSize},
		{"zstd", cfg.Compression.EnableZstd, false},
		{"allowed_methods", len(cfg.Security.AllowedMethods), 5},
		{"compress_types", len(cfg.Compression.CompressTypes), 8},
		{"security_headers", len(cfg.Security.SecurityHeaders), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}
