package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "EDGE_"

// Parse decodes a YAML document on top of the defaults and fills any
// remaining zero fields. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg *Config
	if cfg, err = Parse(data); err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention EDGE_SECTION_FIELD (e.g., EDGE_LOGGING_LEVEL).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file on top of defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies EDGE_* environment variables to cfg.
// Malformed values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("EDGE_SERVER_LISTEN"); val != "" {
		var listeners []ListenerConfig
		for _, addr := range strings.Split(val, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				listeners = append(listeners, ListenerConfig{Address: addr})
			}
		}
		if len(listeners) > 0 {
			cfg.Server.Listeners = listeners
		}
	}
	envInt(&cfg.Server.MaxConnections, "EDGE_SERVER_MAX_CONNECTIONS")
	envDuration(&cfg.Server.KeepAliveTimeout, "EDGE_SERVER_KEEP_ALIVE_TIMEOUT")
	envDuration(&cfg.Server.RequestTimeout, "EDGE_SERVER_REQUEST_TIMEOUT")
	envDuration(&cfg.Server.ShutdownTimeout, "EDGE_SERVER_SHUTDOWN_TIMEOUT")
	envString(&cfg.Server.ServerHeader, "EDGE_SERVER_SERVER_HEADER")

	// TLS overrides
	envString(&cfg.TLS.CertFile, "EDGE_TLS_CERT_FILE")
	envString(&cfg.TLS.KeyFile, "EDGE_TLS_KEY_FILE")
	envBool(&cfg.TLS.AutoGenerateSelfSigned, "EDGE_TLS_AUTO_GENERATE_SELF_SIGNED")

	// Logging overrides
	envString(&cfg.Logging.Level, "EDGE_LOGGING_LEVEL")
	envString(&cfg.Logging.Format, "EDGE_LOGGING_FORMAT")
	envBool(&cfg.Logging.AccessLog.Enabled, "EDGE_LOGGING_ACCESS_LOG_ENABLED")
	envString(&cfg.Logging.AccessLog.Format, "EDGE_LOGGING_ACCESS_LOG_FORMAT")
	envString(&cfg.Logging.AccessLog.Path, "EDGE_LOGGING_ACCESS_LOG_PATH")

	// Security overrides
	envBool(&cfg.Security.EnableRateLimiting, "EDGE_SECURITY_ENABLE_RATE_LIMITING")
	if val := os.Getenv("EDGE_SECURITY_RATE_LIMIT_REQUESTS_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Security.RateLimitRequestsPerSecond = f
		}
	}
	if val := os.Getenv("EDGE_SECURITY_RATE_LIMIT_BURST"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Security.RateLimitBurst = i
		}
	}
	if val := os.Getenv("EDGE_SECURITY_MAX_REQUEST_SIZE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Security.MaxRequestSize = i
		}
	}

	// Compression overrides
	envBool(&cfg.Compression.EnableGzip, "EDGE_COMPRESSION_ENABLE_GZIP")
	envBool(&cfg.Compression.EnableBrotli, "EDGE_COMPRESSION_ENABLE_BROTLI")
	envBool(&cfg.Compression.EnableZstd, "EDGE_COMPRESSION_ENABLE_ZSTD")
	envInt(&cfg.Compression.Level, "EDGE_COMPRESSION_LEVEL")

	// Telemetry overrides
	envBool(&cfg.Metrics.Enabled, "EDGE_METRICS_ENABLED")
	envBool(&cfg.Tracing.Enabled, "EDGE_TRACING_ENABLED")
	envString(&cfg.Tracing.Endpoint, "EDGE_TRACING_ENDPOINT")
	if val := os.Getenv("EDGE_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}
	envString(&cfg.Admin.Address, "EDGE_ADMIN_ADDRESS")
}

func envString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
