package config

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNilConfig is returned when a nil snapshot is published.
var ErrNilConfig = errors.New("config: nil configuration")

// Store holds the current configuration snapshot.
//
// Readers call Load on every request and never block; a reload builds a
// complete new *Config and publishes it with Swap. Requests already holding
// the previous snapshot keep using it until they finish.
type Store struct {
	current atomic.Pointer[Config]

	mu          sync.Mutex
	subscribers []func(old, new *Config)
}

// NewStore returns a store publishing cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg != nil {
		s.current.Store(cfg)
	}
	return s
}

// Load returns the current snapshot. It may be nil only if the store was
// created without one.
func (s *Store) Load() *Config {
	return s.current.Load()
}

// Swap publishes cfg as the current snapshot and notifies subscribers in
// registration order. It returns the previous snapshot.
func (s *Store) Swap(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Swap(cfg)
	for _, fn := range s.subscribers {
		fn(old, cfg)
	}
	return old, nil
}

// Subscribe registers fn to run after every successful Swap.
func (s *Store) Subscribe(fn func(old, new *Config)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Reload loads path with environment overrides, checks it can replace the
// current snapshot without a restart, and swaps it in. The current snapshot
// is left untouched on any error.
func (s *Store) Reload(path string) ([]string, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	warnings, err := CanHotReload(s.Load(), cfg)
	if err != nil {
		return nil, err
	}

	if _, err := s.Swap(cfg); err != nil {
		return nil, err
	}
	return warnings, nil
}
