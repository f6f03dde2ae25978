package strategies

import (
	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/routing"
)

// Backend is the view of an upstream server a strategy needs.
type Backend interface {
	// Address identifies the backend in logs and statistics.
	Address() string

	// Healthy reports the last health verdict.
	Healthy() bool

	// Saturated reports whether the backend is at its in-flight cap.
	Saturated() bool

	// InFlight is the number of requests currently forwarded to the backend.
	InFlight() int64
}

// Strategy is the interface that all load balancing strategies must implement.
// It selects one backend from a list of candidates.
//
// Implementations must be thread-safe as they will be called concurrently
// from multiple goroutines forwarding simultaneous requests.
//
// Example usage:
//
//	strategy := NewHealthFiltered(NewRoundRobin())
//	backend, err := strategy.Select(servers)
//	if err != nil {
//	    return nil, err
//	}
type Strategy interface {
	// Select picks a backend from available, which is in configuration
	// order. It returns routing.ErrNoBackends when available is empty.
	Select(available []Backend) (Backend, error)

	// GetName returns the strategy name for logging and statistics.
	GetName() string

	// Reset resets the strategy's internal state.
	// This is primarily used for testing to clear counters.
	Reset()
}

// Names lists the valid load_balancing values.
var Names = []string{
	config.LoadBalancingRoundRobin,
	config.LoadBalancingLeastConnections,
	config.LoadBalancingRandom,
	config.LoadBalancingIPHash,
}

// New returns the strategy for a load_balancing value. An empty name selects
// round robin.
func New(name string) (Strategy, error) {
	switch name {
	case config.LoadBalancingRoundRobin, "":
		return NewRoundRobin(), nil
	case config.LoadBalancingLeastConnections:
		return NewLeastConnections(), nil
	case config.LoadBalancingRandom:
		return NewRandom(), nil
	case config.LoadBalancingIPHash:
		return NewIPHash(), nil
	default:
		return nil, &routing.InvalidStrategyError{Strategy: name, AvailableStrategies: Names}
	}
}
