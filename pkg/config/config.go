package config

import "time"

// Config is the root configuration structure for the edge server.
// A *Config is treated as an immutable snapshot once it has been published
// through a Store; reloads build a new Config instead of mutating one.
type Config struct {
	// Server contains listener, timeout and connection limit settings.
	Server ServerConfig `yaml:"server"`

	// TLS contains certificate material and protocol settings shared by
	// every TLS listener.
	TLS TLSConfig `yaml:"tls"`

	// Logging contains process log and access log settings.
	Logging LoggingConfig `yaml:"logging"`

	// Security contains the method allow-list, rate limits, request size
	// limit and the response security headers.
	Security SecurityConfig `yaml:"security"`

	// Compression contains response compression policy.
	Compression CompressionConfig `yaml:"compression"`

	// Upstreams maps a pool name to its backend servers.
	// Pool names are referenced by proxy_pass.
	Upstreams map[string]UpstreamConfig `yaml:"upstreams"`

	// VirtualHosts maps a virtual host key to its definition.
	// The key itself is matched exactly against the request host.
	VirtualHosts map[string]VirtualHostConfig `yaml:"virtual_hosts"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing settings.
	Tracing TracingConfig `yaml:"tracing"`

	// Admin contains the management listener serving metrics and health.
	Admin AdminConfig `yaml:"admin"`
}

// ServerConfig contains settings for the client-facing listeners.
type ServerConfig struct {
	// Listeners is the list of addresses to bind.
	// Default: [{address: "0.0.0.0:8080"}]
	Listeners []ListenerConfig `yaml:"listeners"`

	// MaxConnections caps concurrently open client connections per listener.
	// Default: 10000
	MaxConnections int `yaml:"max_connections"`

	// KeepAliveTimeout is how long an idle keep-alive connection is held open.
	// Default: 65s
	KeepAliveTimeout time.Duration `yaml:"keep_alive_timeout"`

	// RequestTimeout bounds reading an entire request including its body.
	// Default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ReadHeaderTimeout bounds the TLS handshake and reading request headers.
	// Default: 60s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// WriteTimeout bounds writing a response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ClientMaxBodySize is the number of body bytes read from a client.
	// Default: 1048576 (1MB)
	ClientMaxBodySize int64 `yaml:"client_max_body_size"`

	// MaxBufferedBody is the largest response body held in memory for
	// header rewriting and compression. Larger static files and upstream
	// bodies are streamed to the client uncompressed.
	// Default: 8388608 (8MB)
	MaxBufferedBody int64 `yaml:"max_buffered_body"`

	// TCPNoDelay disables Nagle's algorithm on accepted connections.
	// Default: true
	TCPNoDelay bool `yaml:"tcp_nodelay"`

	// ShutdownTimeout is how long in-flight requests get during shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ServerHeader is the value of the Server response header.
	// Default: "jupiter-edge/0.1.0"
	ServerHeader string `yaml:"server_header"`
}

// ListenerConfig describes a single bound address.
type ListenerConfig struct {
	// Address is "host:port".
	Address string `yaml:"address"`

	// TLS makes the listener terminate TLS and negotiate ALPN.
	TLS bool `yaml:"tls"`
}

// TLSConfig contains TLS material and protocol settings.
type TLSConfig struct {
	// CertFile is the path to the PEM certificate (chain).
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version ("1.2" or "1.3").
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts TLS 1.2 cipher suites. Empty uses Go defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ALPN is the advertised application protocol list, in preference order.
	// Default: ["h2", "http/1.1"]
	ALPN []string `yaml:"alpn"`

	// AutoGenerateSelfSigned generates a self-signed pair when the files
	// are missing instead of failing startup.
	// Default: false
	AutoGenerateSelfSigned bool `yaml:"auto_generate_self_signed"`

	// ReloadInterval is how often certificate files are checked for changes.
	// Zero disables reloading.
	// Default: 0
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// LoggingConfig contains process and access logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// AccessLog contains per-request access log settings.
	AccessLog AccessLogConfig `yaml:"access_log"`
}

// AccessLogConfig contains access log configuration.
type AccessLogConfig struct {
	// Enabled controls whether access log records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Format is the line format.
	// Options: "json", "common", "combined"
	// Default: "combined"
	Format string `yaml:"format"`

	// Path is the access log file. Empty writes to stdout.
	Path string `yaml:"path"`

	// BufferSize is the number of records queued before new ones are dropped.
	// Default: 4096
	BufferSize int `yaml:"buffer_size"`

	// SQLite stores access records in a database alongside the text log.
	SQLite AccessLogSQLiteConfig `yaml:"sqlite"`

	// Rotate controls size-based rotation of Path.
	Rotate RotateConfig `yaml:"rotate"`
}

// AccessLogSQLiteConfig contains settings for the SQLite access log sink.
type AccessLogSQLiteConfig struct {
	// Enabled turns on the SQLite sink.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/access.db"
	Path string `yaml:"path"`

	// Retention is how long rows are kept. Older rows are pruned on the
	// rotation schedule. Zero keeps every row.
	// Default: 0
	Retention time.Duration `yaml:"retention"`
}

// RotateConfig contains access log rotation settings.
type RotateConfig struct {
	// MaxSize is the file size in bytes that triggers rotation. Zero disables.
	// Default: 0
	MaxSize int64 `yaml:"max_size"`

	// MaxFiles is the number of rotated files kept.
	// Default: 5
	MaxFiles int `yaml:"max_files"`

	// Schedule is the cron expression for the rotation check.
	// Default: "@every 1m"
	Schedule string `yaml:"schedule"`
}

// SecurityConfig contains request admission and response hardening settings.
type SecurityConfig struct {
	// EnableRateLimiting turns on per-client token bucket limiting.
	// Default: true
	EnableRateLimiting bool `yaml:"enable_rate_limiting"`

	// RateLimitRequestsPerSecond is the bucket refill rate.
	// Default: 100
	RateLimitRequestsPerSecond float64 `yaml:"rate_limit_requests_per_second"`

	// RateLimitBurst is the bucket capacity.
	// Default: 200
	RateLimitBurst int64 `yaml:"rate_limit_burst"`

	// RateLimitIdleTTL is how long an untouched client bucket is kept.
	// Default: 10m
	RateLimitIdleTTL time.Duration `yaml:"rate_limit_idle_ttl"`

	// RateLimitMaxClients caps the number of tracked client buckets.
	// Default: 100000
	RateLimitMaxClients int `yaml:"rate_limit_max_clients"`

	// RateLimitSweep is the cron expression for bucket eviction.
	// Default: "@every 1m"
	RateLimitSweep string `yaml:"rate_limit_sweep"`

	// SecurityHeaders are set on every response. Configured entries are
	// merged over the built-in defaults.
	SecurityHeaders map[string]string `yaml:"security_headers"`

	// AllowedMethods is the request method allow-list.
	// Default: ["GET", "POST", "HEAD", "PUT", "DELETE"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// MaxRequestSize is the largest declared Content-Length accepted.
	// Default: 10485760 (10MB)
	MaxRequestSize int64 `yaml:"max_request_size"`
}

// CompressionConfig contains response compression settings.
type CompressionConfig struct {
	// EnableGzip enables gzip encoding.
	// Default: true
	EnableGzip bool `yaml:"enable_gzip"`

	// EnableBrotli enables br encoding.
	// Default: true
	EnableBrotli bool `yaml:"enable_brotli"`

	// EnableZstd enables zstd encoding.
	// Default: false
	EnableZstd bool `yaml:"enable_zstd"`

	// Level is the compression level, 1 (fastest) to 11 (smallest).
	// It is clamped to each encoder's range.
	// Default: 6
	Level int `yaml:"level"`

	// MinCompressSize is the smallest body that is compressed.
	// Default: 1024
	MinCompressSize int `yaml:"min_compress_size"`

	// CompressTypes are media type prefixes eligible for compression.
	CompressTypes []string `yaml:"compress_types"`
}

// UpstreamConfig describes one named pool of backend servers.
type UpstreamConfig struct {
	// Servers are absolute base URLs, e.g. "http://10.0.0.1:8080".
	// Order is preserved and used by round robin and tie breaking.
	Servers []string `yaml:"servers"`

	// LoadBalancing selects the balancing policy.
	// Options: "round_robin", "least_connections", "random", "ip_hash"
	// Default: "round_robin"
	LoadBalancing string `yaml:"load_balancing"`

	// HealthCheck enables periodic probing when set.
	HealthCheck *HealthCheckConfig `yaml:"health_check"`

	// ConnectionTimeout bounds dialing a server.
	// Default: 5s
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// ReadTimeout bounds a whole forwarded exchange.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// MaxConnections caps in-flight requests per server. Zero is unlimited.
	MaxConnections int64 `yaml:"max_connections"`
}

// HealthCheckConfig contains active health probe settings.
type HealthCheckConfig struct {
	// Path is requested with GET on every server.
	// Default: "/health"
	Path string `yaml:"path"`

	// Interval is the minimum time between two probes of a server.
	// Default: 10s
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single probe.
	// Default: 2s
	Timeout time.Duration `yaml:"timeout"`

	// HealthyThreshold is the number of consecutive successes that mark an
	// unhealthy server healthy.
	// Default: 1
	HealthyThreshold int `yaml:"healthy_threshold"`

	// UnhealthyThreshold is the number of consecutive failures that mark a
	// healthy server unhealthy.
	// Default: 1
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`
}

// VirtualHostConfig describes a virtual host.
type VirtualHostConfig struct {
	// ServerNames are matched against the request host. Entries may be
	// exact names, "*.suffix" wildcards or "*".
	ServerNames []string `yaml:"server_names"`

	// DocumentRoot serves static files when no proxy target applies.
	DocumentRoot string `yaml:"document_root"`

	// IndexFiles are tried in order for directory requests.
	// Default: ["index.html"]
	IndexFiles []string `yaml:"index_files"`

	// ProxyPass names the upstream pool used when no location overrides it.
	ProxyPass string `yaml:"proxy_pass"`

	// Locations maps a path prefix to location-level settings.
	Locations map[string]LocationConfig `yaml:"locations"`
}

// LocationConfig contains settings for a path prefix.
type LocationConfig struct {
	// DocumentRoot overrides the virtual host document root.
	DocumentRoot string `yaml:"document_root"`

	// ProxyPass overrides the virtual host proxy target.
	ProxyPass string `yaml:"proxy_pass"`

	// ReturnCode answers the request directly with this status.
	ReturnCode int `yaml:"return_code"`

	// ReturnURL is sent as Location for 3xx return codes.
	ReturnURL string `yaml:"return_url"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "edge"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parent_ratio"
	// Default: "parent_ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "jupiter-edge"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// AdminConfig contains the management listener configuration.
type AdminConfig struct {
	// Address serves /metrics and /health/*. Empty disables the listener.
	// Default: "127.0.0.1:9090"
	Address string `yaml:"address"`
}
