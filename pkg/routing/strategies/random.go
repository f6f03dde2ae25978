package strategies

import (
	"math/rand/v2"

	"mercator-hq/edge/pkg/routing"
)

// Random picks a backend uniformly at random.
type Random struct{}

// NewRandom creates a new random strategy.
func NewRandom() *Random {
	return &Random{}
}

// Select returns a uniformly chosen backend.
func (s *Random) Select(available []Backend) (Backend, error) {
	if len(available) == 0 {
		return nil, routing.ErrNoBackends
	}
	return available[rand.IntN(len(available))], nil
}

// GetName returns the strategy name.
func (s *Random) GetName() string {
	return "random"
}

// Reset is a no-op; the strategy keeps no state.
func (s *Random) Reset() {}

// IPHash is accepted as a load_balancing value but the client address is not
// part of Select, so it behaves exactly like RoundRobin.
type IPHash struct {
	*RoundRobin
}

// NewIPHash creates an ip_hash strategy backed by round robin.
func NewIPHash() *IPHash {
	return &IPHash{RoundRobin: NewRoundRobin()}
}

// GetName returns the strategy name.
func (s *IPHash) GetName() string {
	return "ip_hash"
}
