// Package api provides a typed client for the DevDox REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTransport marks failures that happened before an HTTP response arrived.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks a 2xx response whose body was not valid JSON for the target type.
	ErrDecode = errors.New("decoding response")
)

const maxErrorBody = 4 << 10

// Client is an API client for the DevDox backend.
// It holds no credential: every call carries its own.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the origin every endpoint is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Params are query parameters. Nil values, including typed nil pointers, are omitted.
type Params map[string]any

// Encode renders p as a sorted query string.
func (p Params) Encode() string {
	values := url.Values{}
	for key, raw := range p {
		if s, ok := formatParam(raw); ok {
			values.Set(key, s)
		}
	}
	return values.Encode()
}

func formatParam(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case int:
		return strconv.Itoa(t), true
	case *int:
		if t == nil {
			return "", false
		}
		return strconv.Itoa(*t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case *bool:
		if t == nil {
			return "", false
		}
		return strconv.FormatBool(*t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// RequestOptions carries the optional parts of a request.
type RequestOptions struct {
	Params  Params
	Body    any
	Token   string
	Headers map[string]string
}

// URL builds the absolute URL for endpoint and params.
func (c *Client) URL(endpoint string, params Params) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	u := c.baseURL.ResolveReference(ref)
	if q := params.Encode(); q != "" {
		u.RawQuery = q
	}
	return u.String(), nil
}

// Do performs one request and decodes a successful JSON body into out.
// out may be nil. 204, 205 and empty bodies leave out untouched.
func (c *Client) Do(ctx context.Context, method, endpoint string, opts RequestOptions, out any) error {
	target, err := c.URL(endpoint, opts.Params)
	if err != nil {
		return err
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Method:     method,
			Endpoint:   endpoint,
			Body:       string(snippet),
		}
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent || out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	c.logger.Debug("api request completed",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
	)
	return nil
}

// Ping reports whether the backend origin answers HTTP at all.
// Any response below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	err := c.Do(ctx, http.MethodGet, "/", RequestOptions{}, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return nil
	}
	return err
}

func statusText(resp *http.Response) string {
	// resp.Status is "404 Not Found"; keep the reason phrase the server sent.
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// Get issues a GET and decodes the body as T.
func Get[T any](ctx context.Context, c *Client, endpoint string, params Params, token string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, endpoint, RequestOptions{Params: params, Token: token}, &out)
	return out, err
}

// Post issues a POST with a JSON body and decodes the response as T.
func Post[T any](ctx context.Context, c *Client, endpoint string, body any, token string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, endpoint, RequestOptions{Body: body, Token: token}, &out)
	return out, err
}

// Put issues a PUT with a JSON body and decodes the response as T.
func Put[T any](ctx context.Context, c *Client, endpoint string, body any, token string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPut, endpoint, RequestOptions{Body: body, Token: token}, &out)
	return out, err
}

// Delete issues a DELETE and decodes the response, if any, as T.
func Delete[T any](ctx context.Context, c *Client, endpoint string, token string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodDelete, endpoint, RequestOptions{Token: token}, &out)
	return out, err
}

// Path joins escaped segments onto a root endpoint, e.g. Path("/api/v1/repos", id).
func Path(root string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(root, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
