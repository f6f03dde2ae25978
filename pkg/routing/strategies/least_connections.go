package strategies

import "mercator-hq/edge/pkg/routing"

// LeastConnections picks the backend with the fewest in-flight requests.
// Ties go to the earliest backend in configuration order.
type LeastConnections struct{}

// NewLeastConnections creates a new least-connections strategy.
func NewLeastConnections() *LeastConnections {
	return &LeastConnections{}
}

// Select returns the least loaded backend.
func (s *LeastConnections) Select(available []Backend) (Backend, error) {
	if len(available) == 0 {
		return nil, routing.ErrNoBackends
	}

	best := available[0]
	bestLoad := best.InFlight()
	for _, b := range available[1:] {
		if load := b.InFlight(); load < bestLoad {
			best, bestLoad = b, load
		}
	}
	return best, nil
}

// GetName returns the strategy name.
func (s *LeastConnections) GetName() string {
	return "least_connections"
}

// Reset is a no-op; the strategy keeps no state.
func (s *LeastConnections) Reset() {}
