// Edge is an HTTP edge server.
//
// It terminates plaintext and TLS connections, negotiates HTTP/1.1 or
// HTTP/2, routes requests across virtual hosts and locations, and serves
// them from disk or forwards them to load-balanced upstream pools:
//   - Static files with conditional requests
//   - Reverse proxying with active health checks
//   - Compression (brotli, gzip, zstd)
//   - Per-client rate limiting and security headers
//
// Usage:
//
//	# Start with ./config.yaml, or defaults when it cannot be loaded
//	edge run
//
//	# Start with a custom configuration file
//	edge run --config /etc/edge/config.yaml
//
//	# Check a configuration file without starting
//	edge config validate --config /etc/edge/config.yaml
//
//	# Generate a self-signed certificate for local TLS
//	edge certs generate --out certs --host localhost
//
//	# Show version information
//	edge version
package main

func main() {
	Execute()
}
