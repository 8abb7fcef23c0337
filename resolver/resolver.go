package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goriller/ginny-util/ip"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/plexgrid/plexgrid/errs"
)

// Resolver abstracts "many possible ways to reach one logical server" behind
// a single call surface. It owns the last-known-good endpoint per server
// (keyed by machine identifier) instead of hiding it in package state, so a
// session constructs one resolver and threads it through explicitly.
type Resolver struct {
	client  *http.Client
	logger  *zap.Logger
	tracer  opentracing.Tracer
	order   OrderPolicy
	limiter *rate.Limiter
	cache   *lru.Cache[string, string]
}

// New
func New(opts ...ResolverOptional) (*Resolver, error) {
	o := &ResolverOptions{
		client:    NewHTTPClient(),
		logger:    zap.NewNop(),
		order:     DefaultOrder,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	cache, err := lru.New[string, string](o.cacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		client:  o.client,
		logger:  o.logger,
		tracer:  o.tracer,
		order:   o.order,
		limiter: o.limiter,
		cache:   cache,
	}, nil
}

// Cached returns the last-known-good base URI for a server, if any.
func (r *Resolver) Cached(machineID string) (string, bool) {
	if machineID == "" {
		return "", false
	}
	return r.cache.Get(machineID)
}

// Request resolves a reachable base URI for the descriptor and performs one
// HTTP request against it. The ladder of URIs to try: cached endpoint first;
// under CachedOnly nothing else; under FullScan the remaining candidates in
// policy order plus a synthesized fallback, duplicates removed. The first
// 2xx answer wins, is recorded as the new resolved endpoint and returned
// immediately. Anything else advances the scan; exhaustion surfaces the last
// failure.
func (r *Resolver) Request(ctx context.Context, d Descriptor, path string, options ...RequestOptional) (*http.Response, error) {
	start := time.Now()
	o := parseRequestOptions(d, options...)

	if o.strategy == CachedOnly && r.limiter != nil && !r.limiter.Allow() {
		return nil, errs.Newf(errs.THROTTLED, "background request budget exceeded for server %s", d.Name)
	}

	if r.tracer != nil {
		span := parseTrace(ctx, o.method, "resolver-"+o.method, r.tracer)
		ctx = opentracing.ContextWithSpan(ctx, span)
		defer span.Finish()
	}

	uris, cacheHit := r.ladder(d, o.strategy)
	if len(uris) == 0 {
		if o.strategy == CachedOnly {
			return nil, errs.Newf(errs.NO_ENDPOINTS, "no cached endpoint for server %s", d.Name)
		}
		return nil, errs.Newf(errs.NO_ENDPOINTS, "no endpoints available for server %s", d.Name)
	}

	res := r.scan(ctx, d, uris, path, o)
	scanDuration.Observe(time.Since(start).Seconds())

	if res.resp != nil {
		if cacheHit && res.attempts == 1 {
			scansTotal.WithLabelValues(resultCacheHit).Inc()
		} else {
			scansTotal.WithLabelValues(resultResolved).Inc()
		}
		r.onScanClose(d, o.method, path, res.attempts, start, res.resp.StatusCode, nil)
		return res.resp, nil
	}

	scansTotal.WithLabelValues(resultExhausted).Inc()
	err := errs.Wrapf(errs.EXHAUSTED, res.last, "server %s: all %d endpoints failed", d.Name, res.attempts)
	r.onScanClose(d, o.method, path, res.attempts, start, 0, res.all)
	return nil, err
}

// Probe issues a lightweight identity request against every candidate in
// policy order and reports whether the server answered on any path. A 401
// proves network-level reachability for a token scoped to another profile,
// so it never aborts the scan and still counts as reachable.
func (r *Resolver) Probe(ctx context.Context, d Descriptor, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	var uris []string
	seen := make(map[string]struct{})
	for _, ep := range r.order.Sort(d.Endpoints) {
		uris = appendUnique(uris, seen, ep.BaseURI())
	}
	if len(uris) == 0 {
		return false
	}

	o := parseRequestOptions(d, WithRequestTimeout(timeout))
	res := r.scan(ctx, d, uris, "/identity", o)
	if res.resp != nil {
		io.Copy(io.Discard, res.resp.Body)
		res.resp.Body.Close()
	}
	r.logger.Debug("probe finished",
		zap.String("server", d.Name),
		zap.Int("attempts", res.attempts),
		zap.Bool("reachable", res.reachable),
	)
	return res.reachable
}

// ProbeAll probes a set of servers concurrently, one goroutine per server.
// Each probe is internally sequential over its own candidates and touches
// only its own slot in the result slice.
func (r *Resolver) ProbeAll(ctx context.Context, ds []Descriptor, timeout time.Duration) []bool {
	results := make([]bool, len(ds))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range ds {
		i, d := i, d
		g.Go(func() error {
			results[i] = r.Probe(gctx, d, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// scanResult
type scanResult struct {
	resp      *http.Response
	attempts  int
	reachable bool
	last      error
	all       error
}

// scan walks the ladder in order, one bounded attempt per URI. The first
// 2xx terminates the scan and records the winner; every other outcome is
// remembered and the scan advances.
func (r *Resolver) scan(ctx context.Context, d Descriptor, uris []string, path string, o *RequestOptions) scanResult {
	var res scanResult
	for _, base := range uris {
		if ctx.Err() != nil {
			res.last = ctx.Err()
			res.all = multierr.Append(res.all, ctx.Err())
			return res
		}
		res.attempts++
		resp, err := r.attempt(ctx, base, path, o)
		if err != nil {
			if errs.IsTimeout(err) {
				attemptsTotal.WithLabelValues(outcomeTimeout).Inc()
			} else {
				attemptsTotal.WithLabelValues(outcomeUnreachable).Inc()
			}
			res.last = err
			res.all = multierr.Append(res.all, err)
			continue
		}
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			attemptsTotal.WithLabelValues(outcomeSuccess).Inc()
			res.resp = resp
			res.reachable = true
			if d.MachineID != "" {
				r.cache.Add(d.MachineID, base)
			}
			return res
		}
		code := resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		var aerr error
		if code == http.StatusUnauthorized {
			attemptsTotal.WithLabelValues(outcomeUnauthorized).Inc()
			res.reachable = true
			aerr = errs.Newf(errs.UNAUTHORIZED, "%s answered 401", base)
		} else {
			attemptsTotal.WithLabelValues(outcomeBadStatus).Inc()
			aerr = errs.Newf(errs.BAD_STATUS, "%s answered status %d", base, code)
		}
		res.last = aerr
		res.all = multierr.Append(res.all, aerr)
	}
	return res
}

// attempt performs one HTTP request against one base URI with its own
// timeout. The client copy carries the per-attempt timeout so concurrent
// scans never race on the shared client.
func (r *Resolver) attempt(ctx context.Context, base, path string, o *RequestOptions) (*http.Response, error) {
	uri := requestURL(base, path, o.token, o.params)
	var body io.Reader
	if len(o.body) > 0 {
		body = bytes.NewReader(o.body)
	}
	req, err := http.NewRequest(o.method, uri, body)
	if err != nil {
		return nil, errs.Wrapf(errs.UNREACHABLE, err, "build request for %s", base)
	}
	for k, vs := range o.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	cli := *r.client
	cli.Timeout = o.timeout
	resp, err := ctxhttp.Do(ctx, &cli, req)
	if err != nil {
		var nerr net.Error
		if (errors.As(err, &nerr) && nerr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Timeout(o.timeout, err)
		}
		return nil, errs.Wrapf(errs.UNREACHABLE, err, "%s unreachable", base)
	}
	return resp, nil
}

// ladder builds the ordered list of base URIs a request may try.
func (r *Resolver) ladder(d Descriptor, s Strategy) (uris []string, cacheHit bool) {
	seen := make(map[string]struct{})
	if base, ok := r.Cached(d.MachineID); ok {
		uris = appendUnique(uris, seen, base)
		cacheHit = true
	}
	if s == CachedOnly {
		return
	}
	for _, ep := range r.order.Sort(d.Endpoints) {
		uris = appendUnique(uris, seen, ep.BaseURI())
	}
	uris = appendUnique(uris, seen, d.Fallback())
	return
}

// appendUnique
func appendUnique(uris []string, seen map[string]struct{}, base string) []string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return uris
	}
	if _, ok := seen[base]; ok {
		return uris
	}
	seen[base] = struct{}{}
	return append(uris, base)
}

// requestURL joins base+path and appends the bearer token as a query
// parameter. The upstream API takes X-Plex-Token in the query string, never
// a header. The path may already carry its own query string, which decides
// the ?/& join.
func requestURL(base, path, token string, params url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	uri := base + path
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	if token != "" {
		q.Set("X-Plex-Token", token)
	}
	if len(q) == 0 {
		return uri
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return uri + sep + q.Encode()
}

// onScanClose
func (r *Resolver) onScanClose(d Descriptor, method, path string, attempts int, start time.Time, statusCode int, err error) {
	used := time.Since(start)
	log := r.logger.With(
		zap.String("action", path),
		zap.String("server", d.Name),
		zap.Int("status", statusCode),
		zap.Int("attempts", attempts),
		zap.String("protocol", "http/resolver"),
		zap.Float32("time_ms", durationToMilliseconds(used)),
	)
	if err != nil {
		// local address helps tell a LAN-only server from a dead one
		log.Error(err.Error(), zap.String("local_ip", ip.GetLocalIP4()))
	} else {
		log.Info(method)
	}
}

// parseTrace
func parseTrace(ctx context.Context, method, tag string, tracer opentracing.Tracer) opentracing.Span {
	var parentCtx opentracing.SpanContext
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		parentCtx = parent.Context()
	}

	clientSpan := tracer.StartSpan(
		method,
		opentracing.ChildOf(parentCtx),
		ext.SpanKindRPCClient,
		opentracing.Tag{Key: string(ext.Component), Value: tag},
	)
	return clientSpan
}

// durationToMilliseconds
func durationToMilliseconds(duration time.Duration) float32 {
	milliseconds := float32(duration.Nanoseconds()/1000) / 1000
	return milliseconds
}
