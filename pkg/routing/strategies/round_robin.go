package strategies

import (
	"sync/atomic"

	"mercator-hq/edge/pkg/routing"
)

// RoundRobin distributes requests evenly across the candidates it is given.
//
// The strategy is thread-safe and uses one atomic counter shared by every
// caller. The counter is taken modulo the number of candidates, so the
// rotation adapts when the healthy set shrinks or grows.
type RoundRobin struct {
	counter atomic.Uint64
}

// NewRoundRobin creates a new round-robin strategy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Select returns the next backend in rotation.
func (s *RoundRobin) Select(available []Backend) (Backend, error) {
	if len(available) == 0 {
		return nil, routing.ErrNoBackends
	}

	// Single backend - no need for round-robin
	if len(available) == 1 {
		return available[0], nil
	}

	// Value before increment. Unsigned wrap-around keeps the index valid.
	count := s.counter.Add(1) - 1
	return available[count%uint64(len(available))], nil
}

// GetName returns the strategy name.
func (s *RoundRobin) GetName() string {
	return "round_robin"
}

// Reset resets the round-robin counter.
func (s *RoundRobin) Reset() {
	s.counter.Store(0)
}
