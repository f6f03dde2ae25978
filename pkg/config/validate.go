package config

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listeners[0].address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(cfg)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateCompression(&cfg.Compression)...)
	errs = append(errs, validateUpstreams(cfg.Upstreams)...)
	errs = append(errs, validateVirtualHosts(cfg)...)
	errs = append(errs, validateTelemetry(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates listeners, limits and the TLS material they need.
func validateServer(cfg *Config) []FieldError {
	var errs []FieldError
	s := &cfg.Server

	if len(s.Listeners) == 0 {
		errs = append(errs, FieldError{
			Field:   "server.listeners",
			Message: "at least one listener is required",
		})
	}

	needTLS := false
	for i, l := range s.Listeners {
		field := fmt.Sprintf("server.listeners[%d].address", i)
		if _, _, err := net.SplitHostPort(l.Address); err != nil {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid listen address %q: %v", l.Address, err),
			})
		}
		if l.TLS {
			needTLS = true
		}
	}

	if s.MaxConnections <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_connections",
			Message: "max_connections must be greater than 0",
		})
	}
	if s.ClientMaxBodySize < 0 {
		errs = append(errs, FieldError{
			Field:   "server.client_max_body_size",
			Message: "client_max_body_size must be non-negative",
		})
	}
	if s.MaxBufferedBody < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_buffered_body",
			Message: "max_buffered_body must be non-negative",
		})
	}
	for field, d := range map[string]int64{
		"server.keep_alive_timeout":  int64(s.KeepAliveTimeout),
		"server.request_timeout":     int64(s.RequestTimeout),
		"server.read_header_timeout": int64(s.ReadHeaderTimeout),
		"server.write_timeout":       int64(s.WriteTimeout),
		"server.shutdown_timeout":    int64(s.ShutdownTimeout),
	} {
		if d < 0 {
			errs = append(errs, FieldError{Field: field, Message: "timeout must be positive"})
		}
	}

	if needTLS {
		if !cfg.TLS.AutoGenerateSelfSigned && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
			errs = append(errs, FieldError{
				Field:   "tls",
				Message: "cert_file and key_file are required for TLS listeners unless auto_generate_self_signed is set",
			})
		}
		if cfg.TLS.AutoGenerateSelfSigned && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
			errs = append(errs, FieldError{
				Field:   "tls",
				Message: "cert_file and key_file must name where the generated pair is written",
			})
		}
	}
	switch cfg.TLS.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{
			Field:   "tls.min_version",
			Message: fmt.Sprintf("unsupported TLS version %q (must be 1.2 or 1.3)", cfg.TLS.MinVersion),
		})
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Level),
		})
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Format),
		})
	}
	switch cfg.AccessLog.Format {
	case "json", "common", "combined":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.access_log.format",
			Message: fmt.Sprintf("invalid access log format %q (must be json, common or combined)", cfg.AccessLog.Format),
		})
	}
	if cfg.AccessLog.SQLite.Enabled {
		switch cfg.AccessLog.SQLite.Driver {
		case "sqlite", "sqlite3":
		default:
			errs = append(errs, FieldError{
				Field:   "logging.access_log.sqlite.driver",
				Message: fmt.Sprintf("unknown driver %q (must be sqlite or sqlite3)", cfg.AccessLog.SQLite.Driver),
			})
		}
		if cfg.AccessLog.SQLite.Retention < 0 {
			errs = append(errs, FieldError{
				Field:   "logging.access_log.sqlite.retention",
				Message: "must not be negative",
			})
		}
	}
	if cfg.AccessLog.Rotate.MaxSize > 0 {
		if cfg.AccessLog.Path == "" {
			errs = append(errs, FieldError{
				Field:   "logging.access_log.rotate",
				Message: "rotation requires an access log path",
			})
		}
		if _, err := cron.ParseStandard(cfg.AccessLog.Rotate.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "logging.access_log.rotate.schedule",
				Message: fmt.Sprintf("invalid schedule: %v", err),
			})
		}
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.EnableRateLimiting {
		if cfg.RateLimitRequestsPerSecond <= 0 {
			errs = append(errs, FieldError{
				Field:   "security.rate_limit_requests_per_second",
				Message: "rate must be greater than 0",
			})
		}
		if cfg.RateLimitBurst <= 0 {
			errs = append(errs, FieldError{
				Field:   "security.rate_limit_burst",
				Message: "burst must be greater than 0",
			})
		}
		if _, err := cron.ParseStandard(cfg.RateLimitSweep); err != nil {
			errs = append(errs, FieldError{
				Field:   "security.rate_limit_sweep",
				Message: fmt.Sprintf("invalid schedule: %v", err),
			})
		}
	}

	for i, m := range cfg.AllowedMethods {
		if m == "" || m != strings.ToUpper(m) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("security.allowed_methods[%d]", i),
				Message: fmt.Sprintf("method %q must be an upper-case token", m),
			})
		}
	}

	for name := range cfg.SecurityHeaders {
		if strings.EqualFold(name, "Server") {
			errs = append(errs, FieldError{
				Field:   "security.security_headers",
				Message: "Server is set from server.server_header",
			})
		}
	}

	if cfg.MaxRequestSize < 0 {
		errs = append(errs, FieldError{
			Field:   "security.max_request_size",
			Message: "max_request_size must be non-negative",
		})
	}

	return errs
}

func validateCompression(cfg *CompressionConfig) []FieldError {
	var errs []FieldError

	if cfg.Level < 1 || cfg.Level > 11 {
		errs = append(errs, FieldError{
			Field:   "compression.level",
			Message: "level must be between 1 and 11",
		})
	}
	if cfg.MinCompressSize < 0 {
		errs = append(errs, FieldError{
			Field:   "compression.min_compress_size",
			Message: "min_compress_size must be non-negative",
		})
	}

	return errs
}

// validateUpstreams validates upstream pools in name order so error output
// is stable.
func validateUpstreams(ups map[string]UpstreamConfig) []FieldError {
	var errs []FieldError

	for _, name := range sortedKeys(ups) {
		up := ups[name]
		prefix := "upstreams." + name

		if len(up.Servers) == 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".servers",
				Message: fmt.Sprintf("upstream %q has no servers configured", name),
			})
		}
		for i, s := range up.Servers {
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.servers[%d]", prefix, i),
					Message: fmt.Sprintf("server %q must be an absolute http or https URL", s),
				})
			}
		}

		switch up.LoadBalancing {
		case LoadBalancingRoundRobin, LoadBalancingLeastConnections, LoadBalancingRandom, LoadBalancingIPHash:
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".load_balancing",
				Message: fmt.Sprintf("unknown load balancing method %q", up.LoadBalancing),
			})
		}

		if up.ReadTimeout < 0 || up.ConnectionTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix,
				Message: "timeouts must be positive",
			})
		}
		if up.MaxConnections < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_connections",
				Message: "max_connections must be non-negative",
			})
		}

		if hc := up.HealthCheck; hc != nil {
			if !strings.HasPrefix(hc.Path, "/") {
				errs = append(errs, FieldError{
					Field:   prefix + ".health_check.path",
					Message: "path must start with /",
				})
			}
			if hc.Interval <= 0 || hc.Timeout <= 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".health_check",
					Message: "interval and timeout must be positive",
				})
			}
			if hc.HealthyThreshold < 1 || hc.UnhealthyThreshold < 1 {
				errs = append(errs, FieldError{
					Field:   prefix + ".health_check",
					Message: "thresholds must be at least 1",
				})
			}
		}
	}

	return errs
}

// validateVirtualHosts checks that every proxy target names a pool and that
// location prefixes and return codes are usable.
func validateVirtualHosts(cfg *Config) []FieldError {
	var errs []FieldError

	for _, name := range sortedKeys(cfg.VirtualHosts) {
		vh := cfg.VirtualHosts[name]
		prefix := "virtual_hosts." + name

		if vh.ProxyPass != "" {
			if _, ok := cfg.Upstreams[vh.ProxyPass]; !ok {
				errs = append(errs, FieldError{
					Field:   prefix + ".proxy_pass",
					Message: fmt.Sprintf("unknown upstream %q", vh.ProxyPass),
				})
			}
		}
		for _, sn := range vh.ServerNames {
			if strings.Contains(sn, "*") && sn != "*" && !strings.HasPrefix(sn, "*.") {
				errs = append(errs, FieldError{
					Field:   prefix + ".server_names",
					Message: fmt.Sprintf("wildcard %q must be \"*\" or start with \"*.\"", sn),
				})
			}
		}

		for _, loc := range sortedKeys(vh.Locations) {
			lc := vh.Locations[loc]
			lprefix := fmt.Sprintf("%s.locations[%s]", prefix, loc)

			if !strings.HasPrefix(loc, "/") {
				errs = append(errs, FieldError{
					Field:   lprefix,
					Message: "location prefix must start with /",
				})
			}
			if lc.ProxyPass != "" {
				if _, ok := cfg.Upstreams[lc.ProxyPass]; !ok {
					errs = append(errs, FieldError{
						Field:   lprefix + ".proxy_pass",
						Message: fmt.Sprintf("unknown upstream %q", lc.ProxyPass),
					})
				}
			}
			if lc.ReturnCode != 0 {
				if http.StatusText(lc.ReturnCode) == "" {
					errs = append(errs, FieldError{
						Field:   lprefix + ".return_code",
						Message: fmt.Sprintf("unknown status code %d", lc.ReturnCode),
					})
				}
				if lc.ReturnCode >= 300 && lc.ReturnCode < 400 && lc.ReturnURL == "" {
					errs = append(errs, FieldError{
						Field:   lprefix + ".return_url",
						Message: "redirect codes require return_url",
					})
				}
			}
		}
	}

	return errs
}

func validateTelemetry(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "path must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio", "parent_ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "tracing.sampler",
				Message: fmt.Sprintf("unknown sampler %q", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "tracing.sample_ratio",
				Message: "sample_ratio must be between 0 and 1",
			})
		}
	}

	if cfg.Admin.Address != "" {
		if _, _, err := net.SplitHostPort(cfg.Admin.Address); err != nil {
			errs = append(errs, FieldError{
				Field:   "admin.address",
				Message: fmt.Sprintf("invalid address %q: %v", cfg.Admin.Address, err),
			})
		}
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
