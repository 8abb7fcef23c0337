package pms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/plexgrid/plexgrid/resolver"
)

// ratingIdentifier is the fixed agent identifier the rate endpoint expects.
const ratingIdentifier = "com.plexapp.plugins.library"

// ClientOptions
type ClientOptions struct {
	logger   *zap.Logger
	cacheTTL time.Duration
}

// ClientOptional
type ClientOptional func(o *ClientOptions)

// WithClientLogger
func WithClientLogger(logger *zap.Logger) ClientOptional {
	return func(o *ClientOptions) {
		o.logger = logger
	}
}

// WithListingCache keeps container listings for ttl so a grid re-render
// does not refetch the same folder.
func WithListingCache(ttl time.Duration) ClientOptional {
	return func(o *ClientOptions) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// Client exposes the photo-browsing operations of one Plex Media Server.
// Every call goes through the resolver as its sole transport primitive, so
// endpoint fallback and the resolved-endpoint cache apply uniformly.
type Client struct {
	res    *resolver.Resolver
	d      resolver.Descriptor
	logger *zap.Logger
	cache  *listingCache
}

// NewClient
func NewClient(res *resolver.Resolver, d resolver.Descriptor, opts ...ClientOptional) *Client {
	o := &ClientOptions{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	c := &Client{
		res:    res,
		d:      d,
		logger: o.logger.With(zap.String("server", d.Name)),
	}
	if o.cacheTTL > 0 {
		c.cache = newListingCache(o.cacheTTL)
	}
	return c
}

// Descriptor returns the server this client is bound to.
func (c *Client) Descriptor() resolver.Descriptor {
	return c.d
}

// Identity fetches the server's identity container.
func (c *Client) Identity(ctx context.Context) (*MediaContainer, error) {
	return c.getContainer(ctx, "/identity", nil)
}

// Ping refreshes the resolved endpoint in the background. CachedOnly keeps
// it cheap: a dead cache entry surfaces as an error the caller ignores, it
// never triggers a full scan.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.res.Request(ctx, c.d, "/identity",
		resolver.WithStrategy(resolver.CachedOnly),
		resolver.WithHeader("Accept", "application/json"),
	)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// Libraries lists every library section of the server.
func (c *Client) Libraries(ctx context.Context) ([]Directory, error) {
	container, err := c.getContainer(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	return container.Directory, nil
}

// PhotoLibraries lists only the photo sections, the ones this client can
// actually browse.
func (c *Client) PhotoLibraries(ctx context.Context) ([]Directory, error) {
	sections, err := c.Libraries(ctx)
	if err != nil {
		return nil, err
	}
	var photos []Directory
	for _, section := range sections {
		if section.IsPhoto() && section.Hidden == 0 {
			photos = append(photos, section)
		}
	}
	return photos, nil
}

// SectionAll lists the photos of a section with container pagination.
func (c *Client) SectionAll(ctx context.Context, sectionKey string, start, size int) (*MediaContainer, error) {
	params := url.Values{}
	if size > 0 {
		params.Set("X-Plex-Container-Start", strconv.Itoa(start))
		params.Set("X-Plex-Container-Size", strconv.Itoa(size))
	}
	path := fmt.Sprintf("/library/sections/%s/all", sectionKey)
	return c.getContainer(ctx, path, params)
}

// Folders opens the folder view of a section.
func (c *Client) Folders(ctx context.Context, sectionKey string) (*MediaContainer, error) {
	path := fmt.Sprintf("/library/sections/%s/folder", sectionKey)
	return c.getContainer(ctx, path, nil)
}

// Browse follows a server-relative key from a previous listing. Folder keys
// carry their own query string ("...folder?parent=42"), which exercises the
// resolver's query-aware URL join.
func (c *Client) Browse(ctx context.Context, key string) (*MediaContainer, error) {
	return c.getContainer(ctx, key, nil)
}

// Rate sets the user rating (0-10) on a photo.
func (c *Client) Rate(ctx context.Context, ratingKey string, rating float64) error {
	params := url.Values{}
	params.Set("key", ratingKey)
	params.Set("identifier", ratingIdentifier)
	params.Set("rating", strconv.FormatFloat(rating, 'f', -1, 64))

	resp, err := c.res.Request(ctx, c.d, "/:/rate",
		resolver.WithMethod(http.MethodPut),
		resolver.WithParams(params),
	)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if c.cache != nil {
		// the rated item may appear in any cached listing
		c.cache.clear()
	}
	c.logger.Info("rated photo",
		zap.String("rating_key", ratingKey),
		zap.Float64("rating", rating),
	)
	return nil
}

// Download streams the original file behind a part key to w and returns the
// byte count. Large originals get a generous per-attempt timeout.
func (c *Client) Download(ctx context.Context, partKey string, w io.Writer) (int64, error) {
	resp, err := c.res.Request(ctx, c.d, partKey,
		resolver.WithRequestTimeout(resolver.DefaultTimeout*6),
	)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.Wrapf(err, "download %s", partKey)
	}
	c.logger.Info("downloaded original",
		zap.String("part_key", partKey),
		zap.Int64("bytes", n),
	)
	return n, nil
}

// getContainer
func (c *Client) getContainer(ctx context.Context, path string, params url.Values) (*MediaContainer, error) {
	cacheKey := path
	if len(params) > 0 {
		cacheKey = path + "?" + params.Encode()
	}
	if c.cache != nil {
		if container, ok := c.cache.get(cacheKey); ok {
			return container, nil
		}
	}

	opts := []resolver.RequestOptional{
		resolver.WithHeader("Accept", "application/json"),
	}
	if len(params) > 0 {
		opts = append(opts, resolver.WithParams(params))
	}
	resp, err := c.res.Request(ctx, c.d, path, opts...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}
	out := new(mediaContainerResponse)
	if err := json.Unmarshal(body, out); err != nil {
		return nil, errors.Wrapf(err, "parse %s response", path)
	}
	if c.cache != nil {
		c.cache.set(cacheKey, &out.MediaContainer)
	}
	return &out.MediaContainer, nil
}
