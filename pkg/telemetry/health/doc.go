// Package health implements the liveness and readiness probes served on
// the admin listener.
//
// Liveness only reports that the process runs. Readiness runs every
// registered check; the upstream registry registers one per pool that
// fails when the pool has no healthy server. During graceful shutdown the
// checker is set to draining and readiness answers 503.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("upstream:api", pool.Ready)
//	health.Register(adminMux, checker, version, commit, buildTime)
package health
