package upstream

import (
	"errors"
	"fmt"
	"sort"

	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/routing"
	"mercator-hq/edge/pkg/routing/strategies"
)

// Pool is a named, ordered set of servers with a balancing strategy.
// Membership is fixed for the life of the pool.
type Pool struct {
	name     string
	cfg      config.UpstreamConfig
	servers  []*Server
	backends []strategies.Backend
	strategy strategies.Strategy
}

// NewPool builds a pool from its configuration. Servers found in reuse by
// address are carried over so health and load survive a configuration
// reload.
func NewPool(name string, cfg config.UpstreamConfig, reuse map[string]*Server) (*Pool, error) {
	inner, err := strategies.New(cfg.LoadBalancing)
	if err != nil {
		return nil, fmt.Errorf("upstream %q: %w", name, err)
	}

	p := &Pool{
		name:     name,
		cfg:      cfg,
		strategy: strategies.NewHealthFiltered(inner),
	}

	for _, raw := range cfg.Servers {
		srv, ok := reuse[raw]
		if !ok {
			srv, err = NewServer(raw, cfg.MaxConnections)
			if err != nil {
				return nil, fmt.Errorf("upstream %q: %w", name, err)
			}
		}
		p.servers = append(p.servers, srv)
		p.backends = append(p.backends, srv)
	}

	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Config returns the pool configuration.
func (p *Pool) Config() config.UpstreamConfig {
	return p.cfg
}

// Servers returns the servers in configuration order.
func (p *Pool) Servers() []*Server {
	return p.servers
}

// Strategy returns the pool's balancing strategy.
func (p *Pool) Strategy() strategies.Strategy {
	return p.strategy
}

// HealthyCount returns the number of healthy servers.
func (p *Pool) HealthyCount() int {
	n := 0
	for _, s := range p.servers {
		if s.Healthy() {
			n++
		}
	}
	return n
}

// Select picks a healthy server below its connection cap.
// It returns a *NoHealthyServersError when none qualifies.
func (p *Pool) Select() (*Server, error) {
	b, err := p.strategy.Select(p.backends)
	if err != nil {
		if errors.Is(err, routing.ErrNoBackends) {
			return nil, &NoHealthyServersError{Pool: p.name, Total: len(p.servers), Healthy: p.HealthyCount()}
		}
		return nil, err
	}
	return b.(*Server), nil
}

// Registry holds the pools of one configuration snapshot.
type Registry struct {
	pools map[string]*Pool
}

// NewRegistry builds every configured pool. When prev is non-nil, servers
// with the same pool name and URL are reused from it.
func NewRegistry(upstreams map[string]config.UpstreamConfig, prev *Registry) (*Registry, error) {
	r := &Registry{pools: make(map[string]*Pool, len(upstreams))}

	for name, cfg := range upstreams {
		var reuse map[string]*Server
		if prev != nil {
			if old, ok := prev.pools[name]; ok && old.cfg.MaxConnections == cfg.MaxConnections {
				reuse = make(map[string]*Server, len(old.servers))
				for _, s := range old.servers {
					reuse[s.Address()] = s
				}
			}
		}

		pool, err := NewPool(name, cfg, reuse)
		if err != nil {
			return nil, err
		}
		r.pools[name] = pool
	}

	return r, nil
}

// Get returns the named pool or an *UnknownUpstreamError.
func (r *Registry) Get(name string) (*Pool, error) {
	if p, ok := r.pools[name]; ok {
		return p, nil
	}
	return nil, &UnknownUpstreamError{Name: name}
}

// Names returns the pool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
