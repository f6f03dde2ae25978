package config

import (
	"errors"
	"fmt"
	"slices"
)

// ErrRestartRequired is returned when a reloaded configuration changes
// settings that only take effect at startup.
var ErrRestartRequired = errors.New("configuration change requires restart")

// RestartRequiredError names the setting that blocked a hot reload.
type RestartRequiredError struct {
	Field string
}

// Error implements the error interface.
func (e *RestartRequiredError) Error() string {
	return fmt.Sprintf("%s cannot be changed during hot reload, restart required", e.Field)
}

// Is implements error matching for errors.Is().
func (e *RestartRequiredError) Is(target error) bool {
	return target == ErrRestartRequired
}

// CanHotReload reports whether next may replace prev in a running process.
// Listener sets and the admin address are bound once at startup. Changes to
// TLS material are allowed and reported as warnings because only new
// connections observe them. A nil prev accepts anything.
func CanHotReload(prev, next *Config) ([]string, error) {
	if prev == nil {
		return nil, nil
	}

	if !slices.Equal(prev.Server.Listeners, next.Server.Listeners) {
		return nil, &RestartRequiredError{Field: "server.listeners"}
	}
	if prev.Admin.Address != next.Admin.Address {
		return nil, &RestartRequiredError{Field: "admin.address"}
	}
	if prev.Server.MaxConnections != next.Server.MaxConnections {
		return nil, &RestartRequiredError{Field: "server.max_connections"}
	}

	var warnings []string
	if prev.TLS.CertFile != next.TLS.CertFile || prev.TLS.KeyFile != next.TLS.KeyFile {
		warnings = append(warnings, "TLS certificate paths changed; new connections use the new certificate once reloaded")
	}
	if !slices.Equal(prev.TLS.ALPN, next.TLS.ALPN) || prev.TLS.MinVersion != next.TLS.MinVersion {
		warnings = append(warnings, "TLS protocol settings changed; they apply after restart")
	}
	if prev.Tracing != next.Tracing {
		warnings = append(warnings, "tracing settings changed; they apply after restart")
	}
	if prev.Logging.AccessLog.Path != next.Logging.AccessLog.Path ||
		prev.Logging.AccessLog.SQLite != next.Logging.AccessLog.SQLite {
		warnings = append(warnings, "access log destinations changed; they apply after restart")
	}

	return warnings, nil
}
