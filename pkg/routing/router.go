package routing

import (
	"net"
	"sort"
	"strings"

	"mercator-hq/edge/pkg/config"
)

// DefaultHost is the host used when a request carries no Host header.
const DefaultHost = "default"

// Redirect is a direct answer configured on a location with return_code.
type Redirect struct {
	// Code is the response status.
	Code int

	// URL is sent as Location for 3xx codes. It may be empty.
	URL string
}

// Decision is the outcome of resolving a request host and path.
type Decision struct {
	// VirtualHost is the key of the matched virtual host.
	VirtualHost string

	// Location is the matched location prefix, or "" when none matched.
	Location string

	// ProxyPass is the upstream pool name, location-level first.
	ProxyPass string

	// DocumentRoot is the static root, location-level first.
	DocumentRoot string

	// IndexFiles are the virtual host index files.
	IndexFiles []string

	// Return is set when the location answers the request directly.
	Return *Redirect
}

// Router resolves requests to virtual hosts and locations. A Router is built
// once per configuration snapshot and is safe for concurrent use because it
// is never mutated after NewRouter returns.
type Router struct {
	vhosts map[string]*virtualHost

	// exact maps a lowercased server name to the first vhost (by key order)
	// that lists it.
	exact map[string]string

	// wildcards are "*.suffix" entries ordered by suffix length descending,
	// then by vhost key.
	wildcards []wildcard

	// catchAll is the first vhost key (by key order) listing "*".
	catchAll string
}

type virtualHost struct {
	name      string
	cfg       config.VirtualHostConfig
	locations []string // longest first
}

type wildcard struct {
	suffix string // without the leading "*."
	vhost  string
}

// NewRouter indexes the virtual hosts of a configuration snapshot.
func NewRouter(vhosts map[string]config.VirtualHostConfig) *Router {
	r := &Router{
		vhosts: make(map[string]*virtualHost, len(vhosts)),
		exact:  make(map[string]string),
	}

	names := make([]string, 0, len(vhosts))
	for name := range vhosts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := vhosts[name]
		vh := &virtualHost{name: name, cfg: cfg}
		for prefix := range cfg.Locations {
			vh.locations = append(vh.locations, prefix)
		}
		sort.Slice(vh.locations, func(i, j int) bool {
			a, b := vh.locations[i], vh.locations[j]
			if len(a) != len(b) {
				return len(a) > len(b)
			}
			return a < b
		})
		r.vhosts[strings.ToLower(name)] = vh

		for _, sn := range cfg.ServerNames {
			sn = strings.ToLower(strings.TrimSpace(sn))
			switch {
			case sn == "*":
				if r.catchAll == "" {
					r.catchAll = name
				}
			case strings.HasPrefix(sn, "*."):
				r.wildcards = append(r.wildcards, wildcard{suffix: sn[2:], vhost: name})
			case sn != "":
				if _, ok := r.exact[sn]; !ok {
					r.exact[sn] = name
				}
			}
		}
	}

	// Stable keeps the vhost key order for equal suffix lengths.
	sort.SliceStable(r.wildcards, func(i, j int) bool {
		return len(r.wildcards[i].suffix) > len(r.wildcards[j].suffix)
	})

	return r
}

// Resolve maps a Host header value and a request path to a Decision.
// It returns a *NoVirtualHostError when nothing matches the host.
func (r *Router) Resolve(host, path string) (Decision, error) {
	host = NormalizeHost(host)

	vh := r.lookup(host)
	if vh == nil {
		return Decision{}, &NoVirtualHostError{Host: host}
	}

	d := Decision{
		VirtualHost:  vh.name,
		ProxyPass:    vh.cfg.ProxyPass,
		DocumentRoot: vh.cfg.DocumentRoot,
		IndexFiles:   vh.cfg.IndexFiles,
	}

	for _, prefix := range vh.locations {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		loc := vh.cfg.Locations[prefix]
		d.Location = prefix
		if loc.ProxyPass != "" {
			d.ProxyPass = loc.ProxyPass
		}
		if loc.DocumentRoot != "" {
			d.DocumentRoot = loc.DocumentRoot
		}
		if loc.ReturnCode != 0 {
			d.Return = &Redirect{Code: loc.ReturnCode, URL: loc.ReturnURL}
		}
		break
	}

	return d, nil
}

func (r *Router) lookup(host string) *virtualHost {
	if vh, ok := r.vhosts[host]; ok {
		return vh
	}
	if name, ok := r.exact[host]; ok {
		return r.vhosts[strings.ToLower(name)]
	}
	for _, w := range r.wildcards {
		// "*.example.com" matches "a.example.com" but not "example.com".
		if len(host) > len(w.suffix)+1 && strings.HasSuffix(host, "."+w.suffix) {
			return r.vhosts[strings.ToLower(w.vhost)]
		}
	}
	if r.catchAll != "" {
		return r.vhosts[strings.ToLower(r.catchAll)]
	}
	return nil
}

// NormalizeHost strips the port, lowercases the host and maps an empty value
// to DefaultHost. Bracketed IPv6 literals lose their brackets.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return DefaultHost
	}
	return host
}

// VirtualHosts returns the indexed virtual host keys in sorted order.
func (r *Router) VirtualHosts() []string {
	names := make([]string, 0, len(r.vhosts))
	for _, vh := range r.vhosts {
		names = append(names, vh.name)
	}
	sort.Strings(names)
	return names
}
