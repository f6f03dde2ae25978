package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoVirtualHost is returned when no virtual host matches the request host.
	ErrNoVirtualHost = errors.New("no virtual host matches")

	// ErrInvalidStrategy is returned when an unknown load balancing strategy is configured.
	ErrInvalidStrategy = errors.New("invalid load balancing strategy")

	// ErrNoBackends is returned when a strategy is asked to choose from an empty list.
	ErrNoBackends = errors.New("no backends available")
)

// NoVirtualHostError is returned by Resolve when neither a virtual host key
// nor any server name matches the request host.
type NoVirtualHostError struct {
	// Host is the normalized request host.
	Host string
}

// Error implements the error interface.
func (e *NoVirtualHostError) Error() string {
	return fmt.Sprintf("no virtual host matches host %q", e.Host)
}

// Is implements error matching for errors.Is().
func (e *NoVirtualHostError) Is(target error) bool {
	return target == ErrNoVirtualHost
}

// InvalidStrategyError is returned when the configured load balancing
// strategy is not recognized.
type InvalidStrategyError struct {
	// Strategy is the invalid strategy name.
	Strategy string

	// AvailableStrategies contains the valid strategy names.
	AvailableStrategies []string
}

// Error implements the error interface.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid load balancing strategy %q (available strategies: %s)",
		e.Strategy, strings.Join(e.AvailableStrategies, ", "))
}

// Is implements error matching for errors.Is().
func (e *InvalidStrategyError) Is(target error) bool {
	return target == ErrInvalidStrategy
}
