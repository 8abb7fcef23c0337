package resolver

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/plexgrid/plexgrid/errs"
)

// Endpoint is one concrete way to reach a server: scheme+address+port with a
// fully formed base URI and a flag telling LAN from remote/relay paths.
type Endpoint struct {
	Scheme  string
	Address string
	Port    int
	URI     string
	Local   bool
	Relay   bool
}

// BaseURI returns the endpoint's base URI, synthesizing one from
// scheme/address/port when the upstream listing did not carry it.
func (e Endpoint) BaseURI() string {
	if e.URI != "" {
		return strings.TrimSuffix(e.URI, "/")
	}
	if e.Address == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s:%d", e.Scheme, e.Address, e.Port)
}

// Descriptor identifies one Plex server and every network path to it.
// Descriptors are built by the plextv layer from a resource listing and
// rebuilt whenever the user switches profile or refreshes.
type Descriptor struct {
	Name        string
	MachineID   string
	AccessToken string
	Owned       bool
	Endpoints   []Endpoint
}

// Validate checks the descriptor is usable: at least one candidate and every
// base URI a well-formed absolute http(s) URI.
func (d Descriptor) Validate() error {
	if len(d.Endpoints) == 0 {
		return errs.Newf(errs.NO_ENDPOINTS, "server %s has no connection candidates", d.Name)
	}
	for _, ep := range d.Endpoints {
		base := ep.BaseURI()
		u, err := url.Parse(base)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return errs.Newf(errs.NO_ENDPOINTS, "server %s has malformed endpoint %q", d.Name, base)
		}
	}
	return nil
}

// Fallback synthesizes a base URI straight from the primary endpoint's
// scheme/address/port, for servers whose advertised URIs are all stale.
func (d Descriptor) Fallback() string {
	if len(d.Endpoints) == 0 {
		return ""
	}
	primary := d.Endpoints[0]
	if primary.Address == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s:%d", primary.Scheme, primary.Address, primary.Port)
}

// OrderPolicy names the candidate ordering. Remote-first is the default: a
// client on mobile data or another subnet cannot route to LAN addresses, and
// trying those first buys nothing but timeouts. On a LAN the extra remote
// attempt fails or succeeds fast, a bounded cost.
type OrderPolicy struct {
	RemoteFirst bool
}

// DefaultOrder
var DefaultOrder = OrderPolicy{RemoteFirst: true}

// Sort returns the endpoints in policy order without mutating the input.
// The sort is stable, so relative order inside each group survives.
func (p OrderPolicy) Sort(endpoints []Endpoint) []Endpoint {
	out := make([]Endpoint, len(endpoints))
	copy(out, endpoints)
	if p.RemoteFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return !out[i].Local && out[j].Local
		})
	}
	return out
}
