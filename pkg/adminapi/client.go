// Package adminapi is the authenticated REST client for the role
// administration endpoints of the Fooddie backend.
//
// Every call carries a bearer token (from an oauth2.TokenSource), an
// X-Request-ID header and an OpenTelemetry client span.
package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
)

const maxBodySize = 1 << 20

// Client talks to the admin API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is used
// as is; no token or tracing wrapping is applied.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for failed calls
func WithLogger(l *observability.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records call counts and latency
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// StaticToken returns a token source for a fixed bearer token, or nil when
// token is empty.
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// New creates a client for the API rooted at baseURL. A nil token source
// sends unauthenticated requests.
func New(baseURL string, tokens oauth2.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}

	var transport http.RoundTripper = http.DefaultTransport
	if tokens != nil {
		transport = &oauth2.Transport{Source: tokens, Base: transport}
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   15 * time.Second,
		},
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one round trip. body is JSON encoded when non-nil; out is
// decoded from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, method, path, query, body, out)
	c.metrics.ObserveAPICall(op, status, time.Since(start))

	if err != nil {
		c.logger.WithFields(map[string]any{
			"operation":  op,
			"method":     method,
			"path":       path,
			"status":     status,
			"request_id": observability.GetRequestID(ctx),
		}).WithError(err).Warn("Admin API call failed")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return 0, fmt.Errorf("failed to build URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := observability.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, newAPIError(method, path, resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

// rolePath builds /role/{id}/... with every segment escaped
func rolePath(roleID string, rest ...string) string {
	var b strings.Builder
	b.WriteString("/role/")
	b.WriteString(url.PathEscape(roleID))
	for _, seg := range rest {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}
