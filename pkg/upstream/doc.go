// Package upstream manages backend pools: server state, selection through a
// load balancing strategy, and active health probing.
//
// A Registry is built per configuration snapshot; servers are carried over
// between registries by pool name and URL so a reload keeps health verdicts
// and in-flight counts.
//
//	reg, err := upstream.NewRegistry(cfg.Upstreams, previous)
//	pool, err := reg.Get("api")
//	srv, err := pool.Select()
package upstream
