// Package base provides the shared HTTP client used for upstream APIs and
// for calling the tool server itself.
package base

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
	"github.com/olgasafonova/toolcall-mcp-server/internal/infra"
	"github.com/olgasafonova/toolcall-mcp-server/metrics"
)

const (
	DefaultTimeout = 30 * time.Second

	DefaultCacheTTL = 5 * time.Minute

	// MaxConcurrentRequests limits parallel upstream calls per client
	MaxConcurrentRequests = 5

	// MaxResponseSize caps how much of a response body is read
	MaxResponseSize = 10 << 20

	DefaultMaxRetry = 3

	DefaultUserAgent = "toolcall-mcp-server/1.0"
)

// Client wraps http.Client with a cache, a circuit breaker, a concurrency
// limit, retries and request coalescing.
type Client struct {
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Cache          *infra.Cache
	CircuitBreaker *infra.CircuitBreaker
	Semaphore      chan struct{}

	// Service names the upstream in logs, metrics and errors.
	Service string

	// RetryInterval is the first backoff delay between attempts.
	RetryInterval time.Duration

	flight singleflight.Group
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithCache replaces the default cache. The client takes ownership and
// closes it on Close.
func WithCache(c *infra.Cache) ClientOption {
	return func(client *Client) {
		client.Cache = c
	}
}

func WithCircuitBreaker(cb *infra.CircuitBreaker) ClientOption {
	return func(client *Client) {
		client.CircuitBreaker = cb
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.HTTPClient.Timeout = d
	}
}

func WithService(name string) ClientOption {
	return func(client *Client) {
		client.Service = name
	}
}

func WithRetryInterval(d time.Duration) ClientOption {
	return func(client *Client) {
		client.RetryInterval = d
	}
}

func WithMaxConcurrent(n int) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.Semaphore = make(chan struct{}, n)
		}
	}
}

// NewClient creates a client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient:     newHTTPClient(DefaultTimeout),
		Logger:         slog.Default(),
		Cache:          infra.NewCache(infra.DefaultMaxCacheEntries),
		CircuitBreaker: infra.NewCircuitBreaker(),
		Semaphore:      make(chan struct{}, MaxConcurrentRequests),
		Service:        "upstream",
		RetryInterval:  200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Cache.OnEvict = func(n int) { metrics.CacheEvictions.Add(float64(n)) }

	return c
}

// Close releases resources held by the client
func (c *Client) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
}

func (c *Client) CircuitBreakerStats() infra.CircuitBreakerStats {
	return c.CircuitBreaker.Stats()
}

// AcquireSlot blocks until a request slot is available or ctx is done.
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// CheckCircuitBreaker returns ErrCircuitOpen while the breaker rejects requests.
func (c *Client) CheckCircuitBreaker() error {
	if !c.CircuitBreaker.Allow() {
		stats := c.CircuitBreaker.Stats()
		return &infra.ErrCircuitOpen{
			Service:  c.Service,
			RetryAt:  c.CircuitBreaker.RetryAt(),
			Failures: stats.ConsecutiveFails,
		}
	}
	return nil
}

// Shared runs fn once for all concurrent callers using the same key.
// The third result reports whether the value was shared with another caller.
// fn runs detached from ctx cancellation, so one caller giving up does not
// fail the others; each caller still stops waiting when its own ctx ends.
func (c *Client) Shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	ch := c.flight.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case r := <-ch:
		return r.Val, r.Err, r.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), false
	}
}

// CachedJSON returns the cached value for key or loads it with fn, storing
// the result for ttl. Concurrent misses for the same key share one load.
func CachedJSON[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Cache.Get(key); ok {
		metrics.RecordCacheAccess(true)
		return v.(T), nil
	}
	metrics.RecordCacheAccess(false)

	v, err, _ := c.Shared(ctx, key, func(ctx context.Context) (any, error) {
		res, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Cache.Set(key, res, ttl)
		metrics.SetCacheSize(int64(c.Cache.Size()))
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// RequestConfig configures a single HTTP request
type RequestConfig struct {
	Method      string // defaults to GET
	URL         string
	Body        []byte
	ContentType string // defaults to application/json when Body is set
	UserAgent   string
	Action      string // metrics label, e.g. "geocode"
	MaxRetry    int    // total attempts, defaults to 3

	// PassStatus hands 429 and 5xx responses straight back without retrying
	// them or counting them against the circuit breaker.
	PassStatus bool
}

type response struct {
	body   []byte
	status int
}

// retryableStatus carries a 429 or 5xx response between attempts so the
// last one can be handed back to the caller.
type retryableStatus struct {
	response
	retryAfter error
}

func (e *retryableStatus) Unwrap() error { return e.retryAfter }

func (e *retryableStatus) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.status, truncate(string(e.body), 200))
}

// DoRequest performs an HTTP request with circuit breaking, a concurrency
// limit and retries on transport errors, 429 and 5xx. It returns the body and
// status of the final response; non-2xx statuses are not errors here.
func (c *Client) DoRequest(ctx context.Context, cfg RequestConfig) ([]byte, int, error) {
	if err := c.AcquireSlot(ctx); err != nil {
		return nil, 0, err
	}
	defer c.ReleaseSlot()

	if err := c.CheckCircuitBreaker(); err != nil {
		return nil, 0, err
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}

	attempt := func() (response, error) {
		var body io.Reader
		if cfg.Body != nil {
			body = bytes.NewReader(cfg.Body)
		}
		req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
		if err != nil {
			return response{}, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		c.setHeaders(req, cfg)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return response{}, backoff.Permanent(fmt.Errorf("request canceled: %w", ctx.Err()))
			}
			return response{}, fmt.Errorf("request failed: %w", err)
		}

		data, err := readAndClose(resp)
		if err != nil {
			return response{}, backoff.Permanent(fmt.Errorf("failed to read response: %w", err))
		}
		r := response{body: data, status: resp.StatusCode}
		if cfg.PassStatus {
			return r, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rs := &retryableStatus{response: r}
			if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
				rs.retryAfter = backoff.RetryAfter(secs)
			}
			return r, rs
		}
		if resp.StatusCode >= 500 {
			return r, &retryableStatus{response: r}
		}
		return r, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.RetryInterval

	start := time.Now()
	res, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(maxRetry)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.UpstreamRetries.WithLabelValues(c.Service).Inc()
			c.Logger.Warn("Upstream request failed, retrying",
				"service", c.Service,
				"url", cfg.URL,
				"retry_in", next,
				"error", err)
		}),
	)
	elapsed := time.Since(start).Seconds()

	if err != nil && ctx.Err() != nil {
		// The caller gave up; that says nothing about the upstream.
		c.CircuitBreaker.Release()
		return nil, 0, fmt.Errorf("request canceled: %w", ctx.Err())
	}
	if err != nil {
		c.CircuitBreaker.RecordFailure()
		var last *retryableStatus
		if errors.As(err, &last) {
			metrics.RecordAPICall(c.Service, cfg.Action, elapsed, false, strconv.Itoa(last.status))
			return last.body, last.status, nil
		}
		metrics.RecordAPICall(c.Service, cfg.Action, elapsed, false, "transport")
		return nil, 0, err
	}

	c.CircuitBreaker.RecordSuccess()
	success := res.status < 400
	code := ""
	if !success {
		code = strconv.Itoa(res.status)
	}
	metrics.RecordAPICall(c.Service, cfg.Action, elapsed, success, code)
	return res.body, res.status, nil
}

// GetJSON issues a GET and decodes a 2xx JSON body into out. Any other
// status becomes an UpstreamError.
func (c *Client) GetJSON(ctx context.Context, cfg RequestConfig, out any) error {
	body, status, err := c.DoRequest(ctx, cfg)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apperrors.NewUpstreamError(c.Service, status, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.Service, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, cfg RequestConfig) {
	req.Header.Set("Accept", "application/json")
	if cfg.Body != nil {
		ct := cfg.ContentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	} else {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}
}

// RecordSuccess records a successful request with the circuit breaker
func (c *Client) RecordSuccess() {
	c.CircuitBreaker.RecordSuccess()
}

// RecordFailure records a failed request with the circuit breaker
func (c *Client) RecordFailure() {
	c.CircuitBreaker.RecordFailure()
}

// readAndClose reads at most MaxResponseSize bytes of the body and closes it.
func readAndClose(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	return body, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
