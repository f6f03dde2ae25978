package strategies

import (
	"fmt"

	"mercator-hq/edge/pkg/routing"
)

// HealthFiltered is a decorator that removes unhealthy and saturated
// backends before delegating to a wrapped strategy.
//
// Unlike a failover router it never falls back to unhealthy backends: when
// nothing passes the filter the caller gets an error and answers 502.
type HealthFiltered struct {
	wrapped Strategy
}

// NewHealthFiltered wraps a strategy with health and capacity filtering.
func NewHealthFiltered(wrapped Strategy) *HealthFiltered {
	return &HealthFiltered{wrapped: wrapped}
}

// Select filters available and delegates to the wrapped strategy.
// The error wraps routing.ErrNoBackends when no backend is eligible.
func (s *HealthFiltered) Select(available []Backend) (Backend, error) {
	eligible := make([]Backend, 0, len(available))
	for _, b := range available {
		if b.Healthy() && !b.Saturated() {
			eligible = append(eligible, b)
		}
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: 0 of %d backends eligible", routing.ErrNoBackends, len(available))
	}
	return s.wrapped.Select(eligible)
}

// Wrapped returns the strategy that receives the filtered list.
func (s *HealthFiltered) Wrapped() Strategy {
	return s.wrapped
}

// GetName returns the wrapped strategy name.
func (s *HealthFiltered) GetName() string {
	return s.wrapped.GetName()
}

// Reset resets the wrapped strategy.
func (s *HealthFiltered) Reset() {
	s.wrapped.Reset()
}
