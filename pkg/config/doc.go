// Package config provides configuration management for the edge server.
//
// Configuration is a YAML document decoded on top of Default, so any field
// the file omits keeps its default, and entries in security_headers are
// merged over the built-in header set. ApplyDefaults then fills zero fields
// of map entries such as upstreams and virtual hosts.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("edge.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("edge.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention EDGE_SECTION_FIELD:
//
//   - EDGE_SERVER_LISTEN overrides server.listeners (comma separated)
//   - EDGE_LOGGING_LEVEL overrides logging.level
//   - EDGE_SECURITY_RATE_LIMIT_BURST overrides security.rate_limit_burst
//
// # Snapshots and Reload
//
// A running server reads configuration through a Store. Each request calls
// Store.Load once and uses that snapshot throughout. Store.Reload and the
// fsnotify based Watcher build a new snapshot, refuse changes that need a
// restart (see CanHotReload) and publish it atomically.
//
// # Example Configuration
//
//	server:
//	  listeners:
//	    - address: "0.0.0.0:8080"
//	    - address: "0.0.0.0:8443"
//	      tls: true
//	tls:
//	  cert_file: certs/cert.pem
//	  key_file: certs/key.pem
//	  auto_generate_self_signed: true
//	upstreams:
//	  api:
//	    servers: ["http://10.0.0.1:9000", "http://10.0.0.2:9000"]
//	    load_balancing: least_connections
//	    health_check:
//	      path: /healthz
//	      interval: 5s
//	virtual_hosts:
//	  example.com:
//	    server_names: ["example.com", "*.example.com"]
//	    document_root: /srv/www
//	    locations:
//	      /api/:
//	        proxy_pass: api
package config
