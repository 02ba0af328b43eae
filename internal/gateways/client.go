package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

const maxResponseBytes = 4 << 20

// UpstreamError categorises failures talking to the commerce APIs.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the upstream answered 404.
func (e *UpstreamError) IsNotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

// IsUnavailable reports whether the failure is transient (network error or 5xx).
func (e *UpstreamError) IsUnavailable() bool {
	if e == nil {
		return false
	}
	if e.StatusCode >= http.StatusInternalServerError {
		return true
	}
	return e.Err != nil
}

// envelope is the `{code, message, data}` wrapper every commerce API returns.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *pageMetaDTO    `json:"meta,omitempty"`
}

type pageMetaDTO struct {
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

func (m *pageMetaDTO) toDomain() domain.PageMeta {
	if m == nil {
		return domain.PageMeta{}
	}
	return domain.PageMeta{
		Page:     m.Page,
		PerPage:  m.PerPage,
		Total:    m.Total,
		LastPage: m.LastPage,
	}
}

// Client is the shared JSON-over-HTTPS transport for the commerce APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
}

// ClientOption customises Client behaviour.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithAPIKey attaches a bearer credential to every upstream request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithMaxRetries bounds retry attempts for idempotent (GET) calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient constructs a transport rooted at the given base URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gateways: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("gateways: invalid base url: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		maxRetries: 2,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// getJSON issues a GET, retrying transient failures, and decodes the envelope data into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (domain.PageMeta, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.PageMeta{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		meta, err := c.doJSON(ctx, http.MethodGet, path, query, nil, out)
		if err == nil {
			return meta, nil
		}
		lastErr = err

		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) || !upstreamErr.IsUnavailable() {
			return domain.PageMeta{}, err
		}
	}
	return domain.PageMeta{}, lastErr
}

// postJSON issues a single POST with no retries; submissions are not idempotent.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	_, err := c.doJSON(ctx, http.MethodPost, path, nil, body, out)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) (domain.PageMeta, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.PageMeta{}, err
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: err}
		}
		return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(string(raw))
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
			message = env.Message
		}
		return domain.PageMeta{}, &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Message: message}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: fmt.Errorf("decoding envelope: %w", err)}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return domain.PageMeta{}, &UpstreamError{Endpoint: path, Err: fmt.Errorf("decoding data: %w", err)}
		}
	}
	return env.Meta.toDomain(), nil
}
