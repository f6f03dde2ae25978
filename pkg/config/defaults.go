package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress     = "0.0.0.0:8080"
	DefaultMaxConnections    = 10000
	DefaultKeepAliveTimeout  = 65 * time.Second
	DefaultRequestTimeout    = 60 * time.Second
	DefaultReadHeaderTimeout = 60 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultClientMaxBodySize = 1024 * 1024     // 1MB
	DefaultMaxBufferedBody   = 8 * 1024 * 1024 // 8MB
	DefaultTCPNoDelay        = true
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultServerHeader      = "jupiter-edge/0.1.0"

	// TLS defaults
	DefaultTLSMinVersion = "1.2"

	// Logging defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultAccessLogEnabled     = true
	DefaultAccessLogFormat      = "combined"
	DefaultAccessLogBufferSize  = 4096
	DefaultAccessLogSQLiteDrv   = "sqlite"
	DefaultAccessLogSQLitePath  = "data/access.db"
	DefaultAccessLogMaxFiles    = 5
	DefaultAccessLogRotateSched = "@every 1m"

	// Security defaults
	DefaultRateLimitingEnabled = true
	DefaultRateLimitRPS        = 100.0
	DefaultRateLimitBurst      = int64(200)
	DefaultRateLimitIdleTTL    = 10 * time.Minute
	DefaultRateLimitMaxClients = 100000
	DefaultRateLimitSweep      = "@every 1m"
	DefaultMaxRequestSize      = int64(10 * 1024 * 1024) // 10MB

	// Compression defaults
	DefaultCompressionGzip    = true
	DefaultCompressionBrotli  = true
	DefaultCompressionZstd    = false
	DefaultCompressionLevel   = 6
	DefaultMinCompressSize    = 1024
	DefaultLoadBalancing      = LoadBalancingRoundRobin
	DefaultConnectionTimeout  = 5 * time.Second
	DefaultUpstreamReadTime   = 30 * time.Second
	DefaultHealthCheckPath    = "/health"
	DefaultHealthCheckEvery   = 10 * time.Second
	DefaultHealthCheckTimeout = 2 * time.Second
	DefaultHealthyThreshold   = 1
	DefaultUnhealthyThreshold = 1
	DefaultIndexFile          = "index.html"

	// Telemetry defaults
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "edge"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "parent_ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "jupiter-edge"
	DefaultOTLPInsecure        = true
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultAdminAddress        = "127.0.0.1:9090"
)

// Load balancing policy names.
const (
	LoadBalancingRoundRobin       = "round_robin"
	LoadBalancingLeastConnections = "least_connections"
	LoadBalancingRandom           = "random"
	LoadBalancingIPHash           = "ip_hash"
)

// DefaultSecurityHeaders returns the built-in response security headers.
func DefaultSecurityHeaders() map[string]string {
	return map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"X-XSS-Protection":          "1; mode=block",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	}
}

// DefaultAllowedMethods returns the built-in request method allow-list.
func DefaultAllowedMethods() []string {
	return []string{"GET", "POST", "HEAD", "PUT", "DELETE"}
}

// DefaultCompressTypes returns the built-in compressible media types.
func DefaultCompressTypes() []string {
	return []string{
		"text/html",
		"text/css",
		"text/javascript",
		"application/javascript",
		"application/json",
		"application/xml",
		"text/xml",
		"text/plain",
	}
}

// DefaultALPN returns the advertised protocols in preference order.
func DefaultALPN() []string {
	return []string{"h2", "http/1.1"}
}

// Default returns a configuration with every field set to its default.
// YAML documents are decoded on top of this value, so boolean settings that
// default to true stay true unless a file sets them explicitly.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listeners:         []ListenerConfig{{Address: DefaultListenAddress}},
			MaxConnections:    DefaultMaxConnections,
			KeepAliveTimeout:  DefaultKeepAliveTimeout,
			RequestTimeout:    DefaultRequestTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			ClientMaxBodySize: DefaultClientMaxBodySize,
			MaxBufferedBody:   DefaultMaxBufferedBody,
			TCPNoDelay:        DefaultTCPNoDelay,
			ShutdownTimeout:   DefaultShutdownTimeout,
			ServerHeader:      DefaultServerHeader,
		},
		TLS: TLSConfig{
			MinVersion: DefaultTLSMinVersion,
			ALPN:       DefaultALPN(),
		},
		Logging: LoggingConfig{
			Level:  DefaultLoggingLevel,
			Format: DefaultLoggingFormat,
			AccessLog: AccessLogConfig{
				Enabled:    DefaultAccessLogEnabled,
				Format:     DefaultAccessLogFormat,
				BufferSize: DefaultAccessLogBufferSize,
				SQLite: AccessLogSQLiteConfig{
					Driver: DefaultAccessLogSQLiteDrv,
					Path:   DefaultAccessLogSQLitePath,
				},
				Rotate: RotateConfig{
					MaxFiles: DefaultAccessLogMaxFiles,
					Schedule: DefaultAccessLogRotateSched,
				},
			},
		},
		Security: SecurityConfig{
			EnableRateLimiting:         DefaultRateLimitingEnabled,
			RateLimitRequestsPerSecond: DefaultRateLimitRPS,
			RateLimitBurst:             DefaultRateLimitBurst,
			RateLimitIdleTTL:           DefaultRateLimitIdleTTL,
			RateLimitMaxClients:        DefaultRateLimitMaxClients,
			RateLimitSweep:             DefaultRateLimitSweep,
			SecurityHeaders:            DefaultSecurityHeaders(),
			AllowedMethods:             DefaultAllowedMethods(),
			MaxRequestSize:             DefaultMaxRequestSize,
		},
		Compression: CompressionConfig{
			EnableGzip:      DefaultCompressionGzip,
			EnableBrotli:    DefaultCompressionBrotli,
			EnableZstd:      DefaultCompressionZstd,
			Level:           DefaultCompressionLevel,
			MinCompressSize: DefaultMinCompressSize,
			CompressTypes:   DefaultCompressTypes(),
		},
		Upstreams:    map[string]UpstreamConfig{},
		VirtualHosts: map[string]VirtualHostConfig{},
		Metrics: MetricsConfig{
			Enabled:   DefaultMetricsEnabled,
			Path:      DefaultPrometheusPath,
			Namespace: DefaultMetricsNamespace,
		},
		Tracing: TracingConfig{
			Enabled:     DefaultTracingEnabled,
			Sampler:     DefaultTracingSampler,
			SampleRatio: DefaultTracingSamplingRate,
			ServiceName: DefaultTracingServiceName,
			OTLP: OTLPConfig{
				Insecure: DefaultOTLPInsecure,
				Timeout:  DefaultOTLPTimeout,
			},
		},
		Admin: AdminConfig{
			Address: DefaultAdminAddress,
		},
	}
}

// DefaultWithListen returns the default configuration bound to host:port.
// It is used when no configuration file can be loaded.
func DefaultWithListen(address string) *Config {
	cfg := Default()
	cfg.Server.Listeners = []ListenerConfig{{Address: address}}
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. It covers
// entries that Default cannot pre-populate, such as the members of the
// upstream and virtual host maps.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if len(cfg.Server.Listeners) == 0 {
		cfg.Server.Listeners = []ListenerConfig{{Address: DefaultListenAddress}}
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = DefaultMaxConnections
	}
	if cfg.Server.KeepAliveTimeout == 0 {
		cfg.Server.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ClientMaxBodySize == 0 {
		cfg.Server.ClientMaxBodySize = DefaultClientMaxBodySize
	}
	if cfg.Server.MaxBufferedBody == 0 {
		cfg.Server.MaxBufferedBody = DefaultMaxBufferedBody
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.ServerHeader == "" {
		cfg.Server.ServerHeader = DefaultServerHeader
	}

	// TLS defaults
	if cfg.TLS.MinVersion == "" {
		cfg.TLS.MinVersion = DefaultTLSMinVersion
	}
	if len(cfg.TLS.ALPN) == 0 {
		cfg.TLS.ALPN = DefaultALPN()
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.AccessLog.Format == "" {
		cfg.Logging.AccessLog.Format = DefaultAccessLogFormat
	}
	if cfg.Logging.AccessLog.BufferSize == 0 {
		cfg.Logging.AccessLog.BufferSize = DefaultAccessLogBufferSize
	}
	if cfg.Logging.AccessLog.SQLite.Driver == "" {
		cfg.Logging.AccessLog.SQLite.Driver = DefaultAccessLogSQLiteDrv
	}
	if cfg.Logging.AccessLog.SQLite.Path == "" {
		cfg.Logging.AccessLog.SQLite.Path = DefaultAccessLogSQLitePath
	}
	if cfg.Logging.AccessLog.Rotate.MaxFiles == 0 {
		cfg.Logging.AccessLog.Rotate.MaxFiles = DefaultAccessLogMaxFiles
	}
	if cfg.Logging.AccessLog.Rotate.Schedule == "" {
		cfg.Logging.AccessLog.Rotate.Schedule = DefaultAccessLogRotateSched
	}

	// Security defaults
	if cfg.Security.RateLimitRequestsPerSecond == 0 {
		cfg.Security.RateLimitRequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.Security.RateLimitBurst == 0 {
		cfg.Security.RateLimitBurst = DefaultRateLimitBurst
	}
	if cfg.Security.RateLimitIdleTTL == 0 {
		cfg.Security.RateLimitIdleTTL = DefaultRateLimitIdleTTL
	}
	if cfg.Security.RateLimitMaxClients == 0 {
		cfg.Security.RateLimitMaxClients = DefaultRateLimitMaxClients
	}
	if cfg.Security.RateLimitSweep == "" {
		cfg.Security.RateLimitSweep = DefaultRateLimitSweep
	}
	if cfg.Security.SecurityHeaders == nil {
		cfg.Security.SecurityHeaders = DefaultSecurityHeaders()
	}
	if len(cfg.Security.AllowedMethods) == 0 {
		cfg.Security.AllowedMethods = DefaultAllowedMethods()
	}
	if cfg.Security.MaxRequestSize == 0 {
		cfg.Security.MaxRequestSize = DefaultMaxRequestSize
	}

	// Compression defaults
	if cfg.Compression.Level == 0 {
		cfg.Compression.Level = DefaultCompressionLevel
	}
	if cfg.Compression.MinCompressSize == 0 {
		cfg.Compression.MinCompressSize = DefaultMinCompressSize
	}
	if len(cfg.Compression.CompressTypes) == 0 {
		cfg.Compression.CompressTypes = DefaultCompressTypes()
	}

	applyUpstreamDefaults(cfg)
	applyVirtualHostDefaults(cfg)

	// Telemetry defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}

func applyUpstreamDefaults(cfg *Config) {
	if cfg.Upstreams == nil {
		cfg.Upstreams = map[string]UpstreamConfig{}
	}
	for name, up := range cfg.Upstreams {
		if up.LoadBalancing == "" {
			up.LoadBalancing = DefaultLoadBalancing
		}
		if up.ConnectionTimeout == 0 {
			up.ConnectionTimeout = DefaultConnectionTimeout
		}
		if up.ReadTimeout == 0 {
			up.ReadTimeout = DefaultUpstreamReadTime
		}
		if hc := up.HealthCheck; hc != nil {
			if hc.Path == "" {
				hc.Path = DefaultHealthCheckPath
			}
			if hc.Interval == 0 {
				hc.Interval = DefaultHealthCheckEvery
			}
			if hc.Timeout == 0 {
				hc.Timeout = DefaultHealthCheckTimeout
			}
			if hc.HealthyThreshold == 0 {
				hc.HealthyThreshold = DefaultHealthyThreshold
			}
			if hc.UnhealthyThreshold == 0 {
				hc.UnhealthyThreshold = DefaultUnhealthyThreshold
			}
		}
		cfg.Upstreams[name] = up
	}
}

func applyVirtualHostDefaults(cfg *Config) {
	if cfg.VirtualHosts == nil {
		cfg.VirtualHosts = map[string]VirtualHostConfig{}
	}
	for name, vh := range cfg.VirtualHosts {
		if len(vh.IndexFiles) == 0 {
			vh.IndexFiles = []string{DefaultIndexFile}
		}
		cfg.VirtualHosts[name] = vh
	}
}
