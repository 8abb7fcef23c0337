package plextv

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/context/ctxhttp"

	"github.com/plexgrid/plexgrid/errs"
	"github.com/plexgrid/plexgrid/resolver"
)

const (
	// DefaultBaseURL
	DefaultBaseURL = "https://plex.tv"
	// DefaultTimeout
	DefaultTimeout = time.Second * 15
)

// ClientOptions
type ClientOptions struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
	token   string
}

// ClientOptional
type ClientOptional func(o *ClientOptions)

// WithBaseURL
func WithBaseURL(u string) ClientOptional {
	return func(o *ClientOptions) {
		if u != "" {
			o.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient
func WithHTTPClient(client *http.Client) ClientOptional {
	return func(o *ClientOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithLogger
func WithLogger(logger *zap.Logger) ClientOptional {
	return func(o *ClientOptions) {
		o.logger = logger
	}
}

// WithTimeout
func WithTimeout(t time.Duration) ClientOptional {
	return func(o *ClientOptions) {
		if t > 0 {
			o.timeout = t
		}
	}
}

// WithToken seeds the account token, for sessions restored from the vault.
func WithToken(token string) ClientOptional {
	return func(o *ClientOptions) {
		o.token = token
	}
}

// Client talks to the plex.tv identity-and-resource API. It produces the
// server descriptors the resolver consumes; it never talks to a media
// server itself.
type Client struct {
	base   string
	client *http.Client
	logger *zap.Logger
	device Device
	token  string
}

// NewClient
func NewClient(device Device, opts ...ClientOptional) *Client {
	o := &ClientOptions{
		baseURL: DefaultBaseURL,
		client:  resolver.NewHTTPClient(),
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	cli := *o.client
	cli.Timeout = o.timeout
	return &Client{
		base:   o.baseURL,
		client: &cli,
		logger: o.logger,
		device: device,
		token:  o.token,
	}
}

// Token returns the current account (or profile) token.
func (c *Client) Token() string {
	return c.token
}

// SetToken swaps the active token, typically after a profile switch.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SignIn authenticates with username/password and keeps the account token
// for subsequent calls.
func (c *Client) SignIn(ctx context.Context, username, password string) (*Account, error) {
	req, err := http.NewRequest(http.MethodPost, c.base+"/users/sign_in.xml", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build sign in request")
	}
	req.Header = c.device.Header()
	req.SetBasicAuth(username, password)

	resp, err := ctxhttp.Do(ctx, c.client, req)
	if err != nil {
		return nil, errors.Wrap(err, "sign in")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read sign in response")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errs.New(errs.UNAUTHORIZED, "invalid plex.tv credentials")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errs.Newf(errs.BAD_STATUS, "sign in answered status %d", resp.StatusCode)
	}

	account := new(Account)
	if err := xml.Unmarshal(body, account); err != nil {
		return nil, errors.Wrap(err, "parse sign in response")
	}
	c.token = account.Token
	c.logger.Info("signed in", zap.String("username", account.Username))
	return account, nil
}

// HomeUsers lists the selectable profiles of the account's Plex Home.
func (c *Client) HomeUsers(ctx context.Context) ([]HomeUser, error) {
	var out homeUsersResponse
	if err := c.get(ctx, "/api/v2/home/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// SwitchHomeUser exchanges the account token for one scoped to the given
// profile. The caller rebuilds its descriptors afterwards: per-profile
// server tokens differ.
func (c *Client) SwitchHomeUser(ctx context.Context, userID int, pin string) (*Account, error) {
	params := url.Values{}
	if pin != "" {
		params.Set("pin", pin)
	}
	account := new(Account)
	path := fmt.Sprintf("/api/v2/home/users/%d/switch", userID)
	if err := c.do(ctx, http.MethodPost, path, params, account); err != nil {
		return nil, err
	}
	c.token = account.Token
	c.logger.Info("switched profile", zap.Int("user_id", userID))
	return account, nil
}

// Resources lists every device attached to the account, relay and https
// connections included.
func (c *Client) Resources(ctx context.Context) ([]Resource, error) {
	params := url.Values{}
	params.Set("includeHttps", "1")
	params.Set("includeRelay", "1")
	var out []Resource
	if err := c.get(ctx, "/api/v2/resources", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Servers maps the account's reachable-in-principle media servers to
// resolver descriptors. Resources that provide no server role or advertise
// no connections are dropped; relay paths map to non-local endpoints.
func (c *Client) Servers(ctx context.Context) ([]resolver.Descriptor, error) {
	resources, err := c.Resources(ctx)
	if err != nil {
		return nil, err
	}
	var ds []resolver.Descriptor
	for _, res := range resources {
		if !strings.Contains(res.Provides, "server") || len(res.Connections) == 0 {
			continue
		}
		d := resolver.Descriptor{
			Name:        res.Name,
			MachineID:   res.ClientIdentifier,
			AccessToken: res.AccessToken,
			Owned:       res.Owned,
		}
		for _, conn := range res.Connections {
			d.Endpoints = append(d.Endpoints, resolver.Endpoint{
				Scheme:  conn.Protocol,
				Address: conn.Address,
				Port:    conn.Port,
				URI:     conn.URI,
				Local:   conn.Local && !conn.Relay,
				Relay:   conn.Relay,
			})
		}
		ds = append(ds, d)
	}
	c.logger.Debug("listed servers", zap.Int("count", len(ds)))
	return ds, nil
}

// get
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, out)
}

// do performs one JSON call against plex.tv. The token rides as a query
// parameter, same contract as the media server API.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	if c.token != "" {
		params.Set("X-Plex-Token", c.token)
	}
	uri := c.base + path + "?" + params.Encode()
	req, err := http.NewRequest(method, uri, nil)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header = c.device.Header()
	req.Header.Set("Accept", "application/json")

	resp, err := ctxhttp.Do(ctx, c.client, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", path)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return errs.Newf(errs.UNAUTHORIZED, "%s answered 401", path)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errs.Newf(errs.BAD_STATUS, "%s answered status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "parse %s response", path)
	}
	return nil
}
