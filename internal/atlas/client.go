// Package atlas is the HTTP transport to the MongoDB Atlas Administration API.
//
// The Transport interface is all the fetch layer depends on: a method, a path
// and a query in; a status, headers and body (or a network error) out. Client
// is the production implementation. It signs requests (HTTP digest by default)
// and meters every request through one token bucket shared by all workers,
// so a run approaches the API's rate limit smoothly instead of discovering it
// through 429s.
package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aryankumar/atlas-report/internal/metrics"
	"github.com/icholy/digest"
	"k8s.io/client-go/util/flowcontrol"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 10
	maxBodyBytes     = 32 << 20
)

// Transport issues one API request. Non-2xx statuses are returned as a
// Response, never as an error; an error always means no response was received.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values) (*Response, error)
}

// Response is a fully read API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RetryAfter returns the raw Retry-After header value
func (r *Response) RetryAfter() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Retry-After")
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Detail extracts the human-readable error detail Atlas puts in error bodies
func (r *Response) Detail() string {
	if r == nil || len(r.Body) == 0 {
		return ""
	}
	var body struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"errorCode"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	switch {
	case body.Detail != "" && body.ErrorCode != "":
		return body.ErrorCode + ": " + body.Detail
	case body.Detail != "":
		return body.Detail
	default:
		return body.Reason
	}
}

// Signer decorates a round tripper with an authentication scheme
type Signer func(next http.RoundTripper) http.RoundTripper

// DigestSigner authenticates with an Atlas programmatic API key
func DigestSigner(publicKey, privateKey string) Signer {
	return func(next http.RoundTripper) http.RoundTripper {
		return &digest.Transport{
			Username:  publicKey,
			Password:  privateKey,
			Transport: next,
		}
	}
}

// ClientConfig configures a Client
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL string

	// Signer authenticates requests; nil sends them unsigned
	Signer Signer

	// Timeout bounds a single request, including reading the body
	Timeout time.Duration

	// RateLimit is the sustained requests per second across all callers
	RateLimit float64

	// Burst is the token bucket size; defaults to the rate rounded up
	Burst int

	// UserAgent is sent with every request
	UserAgent string

	// HTTPTransport overrides the base round tripper (tests)
	HTTPTransport http.RoundTripper

	Recorder *metrics.Recorder
	Logger   *slog.Logger
}

// Client is the production Transport
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    flowcontrol.RateLimiter
	userAgent  string
	recorder   *metrics.Recorder
	logger     *slog.Logger
}

// NewClient creates a client from cfg
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rate := cfg.RateLimit
	if rate <= 0 {
		rate = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rate)
		if float64(burst) < rate {
			burst++
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rt http.RoundTripper = http.DefaultTransport
	if cfg.HTTPTransport != nil {
		rt = cfg.HTTPTransport
	}
	if cfg.Signer != nil {
		rt = cfg.Signer(rt)
	}

	logger.Debug("created atlas client",
		"base_url", baseURL,
		"timeout", timeout,
		"rate_limit", rate,
		"burst", burst)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   timeout,
		},
		limiter:   flowcontrol.NewTokenBucketRateLimiter(float32(rate), burst),
		userAgent: cfg.UserAgent,
		recorder:  cfg.Recorder,
		logger:    logger,
	}, nil
}

// Do issues one request after waiting for a rate-limit token
func (c *Client) Do(ctx context.Context, method, path string, query url.Values) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// The limiter refuses early when the wait would outlive the context
		// deadline, so treat any refusal as the run ending.
		return nil, &Error{Kind: KindCancelled, Path: path, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.ObserveRequest(0, time.Since(start))
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	duration := time.Since(start)
	c.recorder.ObserveRequest(resp.StatusCode, duration)

	if readErr != nil {
		// The digest transport hands back an already-drained body when a 401
		// carries no challenge; the status is still meaningful.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body = nil
		} else {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", duration)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Close stops the rate limiter and releases idle connections
func (c *Client) Close() {
	c.limiter.Stop()
	c.httpClient.CloseIdleConnections()
}

// Decode unmarshals a successful response body into a page envelope
func Decode[T any](resp *Response) (*Page[T], error) {
	if resp == nil {
		return nil, errors.New("nil response")
	}
	var page Page[T]
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}
