package plextv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testDevice() Device {
	return Device{
		Product:  "plexgrid",
		Version:  "test",
		Platform: "test",
		Name:     "unit test",
		ClientID: "client-test",
	}
}

func TestSignIn(t *testing.T) {
	var gotUser, gotPass, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/sign_in.xml", r.URL.Path)
		gotUser, gotPass, _ = r.BasicAuth()
		gotClientID = r.Header.Get("X-Plex-Client-Identifier")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`<user id="1" uuid="u-1" email="me@example.com" username="me" title="Me" authenticationToken="account-token"/>`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(testDevice(),
		WithBaseURL(srv.URL),
		WithLogger(zaptest.NewLogger(t)),
	)

	account, err := c.SignIn(context.Background(), "me", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "me", gotUser)
	assert.Equal(t, "hunter2", gotPass)
	assert.Equal(t, "client-test", gotClientID)
	assert.Equal(t, "account-token", account.Token)
	assert.Equal(t, "account-token", c.Token())
}

func TestSignInBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(testDevice(), WithBaseURL(srv.URL))
	_, err := c.SignIn(context.Background(), "me", "wrong")
	require.Error(t, err)
	assert.Empty(t, c.Token())
}

func TestHomeUsersAndSwitch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/home/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "account-token", r.URL.Query().Get("X-Plex-Token"))
		json.NewEncoder(w).Encode(homeUsersResponse{
			ID:   7,
			Name: "Home",
			Users: []HomeUser{
				{ID: 1, Title: "Me", Admin: true},
				{ID: 2, Title: "Kid", Protected: true},
			},
		})
	})
	mux.HandleFunc("/api/v2/home/users/2/switch", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "1234", r.URL.Query().Get("pin"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 2, "title": "Kid", "authToken": "kid-token",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(testDevice(),
		WithBaseURL(srv.URL),
		WithToken("account-token"),
	)

	users, err := c.HomeUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[1].Protected)

	account, err := c.SwitchHomeUser(context.Background(), 2, "1234")
	require.NoError(t, err)
	assert.Equal(t, "kid-token", account.Token)
	assert.Equal(t, "kid-token", c.Token(), "the profile token replaces the account token")
}

func TestServersMapsResources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/resources", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("includeHttps"))
		require.Equal(t, "1", r.URL.Query().Get("includeRelay"))
		json.NewEncoder(w).Encode([]Resource{
			{
				Name:             "Home NAS",
				Provides:         "server",
				ClientIdentifier: "machine-nas",
				AccessToken:      "nas-token",
				Owned:            true,
				Connections: []Connection{
					{Protocol: "http", Address: "192.168.1.10", Port: 32400, URI: "http://192.168.1.10:32400", Local: true},
					{Protocol: "https", Address: "1.2.3.4", Port: 32400, URI: "https://1-2-3-4.x.plex.direct:32400"},
					{Protocol: "https", Address: "relay.example", Port: 8443, URI: "https://relay.example:8443", Local: true, Relay: true},
				},
			},
			{Name: "Player", Provides: "player", ClientIdentifier: "machine-player"},
			{Name: "No Connections", Provides: "server", ClientIdentifier: "machine-none"},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(testDevice(),
		WithBaseURL(srv.URL),
		WithToken("account-token"),
	)

	ds, err := c.Servers(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1, "players and connection-less resources must be dropped")

	d := ds[0]
	assert.Equal(t, "Home NAS", d.Name)
	assert.Equal(t, "machine-nas", d.MachineID)
	assert.Equal(t, "nas-token", d.AccessToken)
	assert.True(t, d.Owned)
	require.Len(t, d.Endpoints, 3)
	assert.True(t, d.Endpoints[0].Local)
	assert.False(t, d.Endpoints[1].Local)
	assert.False(t, d.Endpoints[2].Local, "relay paths are never local")
	assert.True(t, d.Endpoints[2].Relay)
	require.NoError(t, d.Validate())
}
