package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/config"
)

const maxResponseBytes = 4 << 20

// TokenSource is the part of the token store the client needs
type TokenSource interface {
	Get() (string, bool)
	ClearIf(token string) (bool, error)
}

// Client is the single point of outbound requests to the membership API
type Client struct {
	mu             sync.RWMutex
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(token string)
	logger         zerolog.Logger
	metrics        *Metrics
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request network timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger attaches a logger
func WithLogger(zlog zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = zlog
	}
}

// WithMetrics records request counts and latencies
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new API client
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: config.DefaultAPITimeout,
		},
		tokens: tokens,
		logger: zerolog.Nop(),
	}
	c.Configure(baseURL)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure sets the target origin; empty falls back to the local default
func (c *Client) Configure(baseURL string) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}

	c.mu.Lock()
	c.baseURL = baseURL
	c.mu.Unlock()
}

// BaseURL returns the configured origin
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.mu.Lock()
	c.httpClient = httpClient
	c.mu.Unlock()
}

// OnUnauthorized registers fn to run after a stored token was rejected with 401.
// fn receives the rejected token. It does not run when the store already holds
// a different token, e.g. after a newer login. Navigation is left to the
// caller; the client never redirects.
func (c *Client) OnUnauthorized(fn func(token string)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

type requestOptions struct {
	bearer string
	noAuth bool
}

// RequestOption adjusts a single request
type RequestOption func(*requestOptions)

// WithBearer sends token instead of the stored one. A 401 on such a request
// leaves the token store alone.
func WithBearer(token string) RequestOption {
	return func(o *requestOptions) {
		o.bearer = token
	}
}

// WithoutAuth sends no Authorization header
func WithoutAuth() RequestOption {
	return func(o *requestOptions) {
		o.noAuth = true
	}
}

// Request issues method path with an optional JSON body and query, decoding a
// 2xx response into out (if non-nil). Failures are always *Error.
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	c.mu.RLock()
	baseURL, httpClient, hook := c.baseURL, c.httpClient, c.onUnauthorized
	c.mu.RUnlock()

	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// sentToken is the stored token this request carries, if any
	var sentToken string
	switch {
	case ro.noAuth:
	case ro.bearer != "":
		req.Header.Set("Authorization", "Bearer "+ro.bearer)
	default:
		if token, ok := c.tokens.Get(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
			sentToken = token
		}
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, path, string(KindNetwork), time.Since(start))
		c.logger.Warn().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("API request failed")
		return newNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.observe(method, path, string(KindNetwork), time.Since(start))
		return newNetworkError(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.metrics.observe(method, path, "ok", time.Since(start))
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "Unexpected response from server", Err: err}
		}
		return nil
	}

	var errBody apiErrorBody
	_ = json.Unmarshal(data, &errBody)
	apiErr := newResponseError(resp.StatusCode, errBody)
	c.metrics.observe(method, path, string(apiErr.Kind), time.Since(start))

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("kind", string(apiErr.Kind)).
		Msg("API request rejected")

	if apiErr.Kind == KindAuth && sentToken != "" {
		c.rejectToken(sentToken, requestID, hook)
	}

	return apiErr
}

// rejectToken drops a token the API refused, unless it was already replaced
func (c *Client) rejectToken(token, requestID string, hook func(string)) {
	matched, err := c.tokens.ClearIf(token)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear rejected token")
	}
	if !matched {
		c.logger.Debug().Str("request_id", requestID).Msg("Ignoring 401 for a token that is no longer stored")
		return
	}
	if hook != nil {
		hook(token)
	}
}
