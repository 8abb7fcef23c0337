package resolver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single endpoint attempt.
	DefaultTimeout = time.Second * 10
	// DefaultProbeTimeout bounds one candidate during a reachability probe.
	DefaultProbeTimeout = time.Second * 5
	// DefaultCacheSize caps how many servers keep a resolved endpoint.
	DefaultCacheSize = 32
)

// Strategy selects which base URIs a request may try.
type Strategy int

const (
	// FullScan tries the cached endpoint, then every remaining candidate in
	// policy order, then the synthesized fallback.
	FullScan Strategy = iota
	// CachedOnly tries the cached endpoint and nothing else. Background
	// refreshes use it so a dead cache entry cannot cost a full scan.
	CachedOnly
)

// String
func (s Strategy) String() string {
	if s == CachedOnly {
		return "cached_only"
	}
	return "full_scan"
}

// ResolverOptions
type ResolverOptions struct {
	client    *http.Client
	logger    *zap.Logger
	tracer    opentracing.Tracer
	order     OrderPolicy
	cacheSize int
	limiter   *rate.Limiter
}

// ResolverOptional
type ResolverOptional func(o *ResolverOptions)

// WithHTTPClient
func WithHTTPClient(client *http.Client) ResolverOptional {
	return func(o *ResolverOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithLogger
func WithLogger(logger *zap.Logger) ResolverOptional {
	return func(o *ResolverOptions) {
		o.logger = logger
	}
}

// WithTracer
func WithTracer(tracer opentracing.Tracer) ResolverOptional {
	return func(o *ResolverOptions) {
		o.tracer = tracer
	}
}

// WithOrderPolicy
func WithOrderPolicy(p OrderPolicy) ResolverOptional {
	return func(o *ResolverOptions) {
		o.order = p
	}
}

// WithCacheSize
func WithCacheSize(n int) ResolverOptional {
	return func(o *ResolverOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithBackgroundLimit rate-limits CachedOnly requests so background
// refreshes cannot stampede a server.
func WithBackgroundLimit(limit rate.Limit, burst int) ResolverOptional {
	return func(o *ResolverOptions) {
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// RequestOptions
type RequestOptions struct {
	method   string
	timeout  time.Duration
	strategy Strategy
	token    string
	params   url.Values
	header   http.Header
	body     []byte
}

// RequestOptional
type RequestOptional func(o *RequestOptions)

// WithMethod
func WithMethod(method string) RequestOptional {
	return func(o *RequestOptions) {
		if method != "" {
			o.method = method
		}
	}
}

// WithRequestTimeout
func WithRequestTimeout(t time.Duration) RequestOptional {
	return func(o *RequestOptions) {
		if t > 0 {
			o.timeout = t
		}
	}
}

// WithStrategy
func WithStrategy(s Strategy) RequestOptional {
	return func(o *RequestOptions) {
		o.strategy = s
	}
}

// WithToken overrides the descriptor's own access token for this call.
func WithToken(token string) RequestOptional {
	return func(o *RequestOptions) {
		if token != "" {
			o.token = token
		}
	}
}

// WithParams adds extra query parameters to the request URL.
func WithParams(params url.Values) RequestOptional {
	return func(o *RequestOptions) {
		if o.params == nil {
			o.params = url.Values{}
		}
		for k, vs := range params {
			for _, v := range vs {
				o.params.Add(k, v)
			}
		}
	}
}

// WithHeader sets one request header.
func WithHeader(key, value string) RequestOptional {
	return func(o *RequestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

// WithBody sets the request body. Bytes rather than a reader so the body can
// be replayed against every candidate in the scan.
func WithBody(body []byte) RequestOptional {
	return func(o *RequestOptions) {
		o.body = body
	}
}

// parseRequestOptions
func parseRequestOptions(d Descriptor, options ...RequestOptional) *RequestOptions {
	o := &RequestOptions{
		method:   http.MethodGet,
		timeout:  DefaultTimeout,
		strategy: FullScan,
		token:    d.AccessToken,
	}
	for _, option := range options {
		option(o)
	}
	return o
}
