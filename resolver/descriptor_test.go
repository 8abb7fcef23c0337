package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plexgrid/plexgrid/errs"
)

func TestOrderPolicySort(t *testing.T) {
	endpoints := []Endpoint{
		{URI: "http://192.168.1.10:32400", Local: true},
		{URI: "https://a.example.plex.direct:32400"},
		{URI: "https://relay.plex.direct:8443", Relay: true},
		{URI: "http://192.168.1.11:32400", Local: true},
	}

	sorted := DefaultOrder.Sort(endpoints)

	assert.Equal(t, "https://a.example.plex.direct:32400", sorted[0].URI)
	assert.Equal(t, "https://relay.plex.direct:8443", sorted[1].URI)
	assert.Equal(t, "http://192.168.1.10:32400", sorted[2].URI, "relative order inside a group must survive")
	assert.Equal(t, "http://192.168.1.11:32400", sorted[3].URI)

	// input must not be mutated
	assert.True(t, endpoints[0].Local)

	unsorted := OrderPolicy{RemoteFirst: false}.Sort(endpoints)
	assert.Equal(t, endpoints, unsorted)
}

func TestEndpointBaseURI(t *testing.T) {
	withURI := Endpoint{Scheme: "http", Address: "10.0.0.2", Port: 32400, URI: "https://advertised.example:32400/"}
	assert.Equal(t, "https://advertised.example:32400", withURI.BaseURI())

	synthesized := Endpoint{Scheme: "http", Address: "10.0.0.2", Port: 32400}
	assert.Equal(t, "http://10.0.0.2:32400", synthesized.BaseURI())

	empty := Endpoint{}
	assert.Equal(t, "", empty.BaseURI())
}

func TestDescriptorFallback(t *testing.T) {
	d := Descriptor{
		Name: "srv",
		Endpoints: []Endpoint{
			{Scheme: "http", Address: "10.0.0.2", Port: 32400, URI: "https://advertised.example:32400"},
			{Scheme: "https", Address: "other.example", Port: 443},
		},
	}
	assert.Equal(t, "http://10.0.0.2:32400", d.Fallback())

	empty := Descriptor{Name: "empty"}
	assert.Equal(t, "", empty.Fallback())
}

func TestDescriptorValidate(t *testing.T) {
	ok := Descriptor{
		Name:      "srv",
		Endpoints: []Endpoint{{Scheme: "http", Address: "10.0.0.2", Port: 32400}},
	}
	assert.NoError(t, ok.Validate())

	empty := Descriptor{Name: "empty"}
	err := empty.Validate()
	assert.Error(t, err)
	assert.True(t, errs.IsNoEndpoints(err))

	malformed := Descriptor{
		Name:      "bad",
		Endpoints: []Endpoint{{URI: "ftp://files.example:21"}},
	}
	assert.Error(t, malformed.Validate())
}
