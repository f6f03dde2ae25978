/*
Package security admits requests and hardens responses.

# Request admission

A Gate is built from the security section of a configuration snapshot:

	gate := security.NewGate(cfg.Security, cfg.Server.ServerHeader, limiter)

	if !gate.MethodAllowed(r.Method) {
		// 405
	}
	if res := gate.CheckRateLimit(clientIP); !res.Allowed {
		// 429 with Retry-After
	}
	if !gate.CheckRequestSize(r.ContentLength) {
		// 413
	}

# Response headers

ApplyHeaders copies the configured security headers, merged over the
built-in defaults, and sets Server last so no configured entry can
override it.

# TLS

Subpackage tls converts the tls section to a crypto/tls configuration,
reloads certificates when their files change and generates self-signed
pairs for development.
*/
package security
