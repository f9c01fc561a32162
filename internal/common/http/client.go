// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin wrapper over net/http that sets a default User-Agent and
// retries transient failures with exponential backoff.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

type Option func(*Client)

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRetry sets how many times a retryable response or transport error is retried.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseDelay:  time.Second,
		maxDelay:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient exposes the underlying client for SDKs that accept one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// DoWithRetry sends req and retries on transport errors, 429 and 5xx. The
// request body is buffered so it can be replayed.
func (c *Client) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		r := req.Clone(ctx)
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		resp, err := c.Do(r)
		switch {
		case err != nil:
			lastErr = err
		case Retryable(resp.StatusCode) && attempt < c.maxRetries:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("%s %s: status %d", req.Method, req.URL.Redacted(), resp.StatusCode)
		default:
			return resp, nil
		}

		if attempt == c.maxRetries {
			break
		}
		delay := c.baseDelay * time.Duration(1<<attempt)
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s %s cancelled after %d attempts: %w", req.Method, req.URL.Redacted(), attempt+1, ctx.Err())
		}
	}
	return nil, lastErr
}

// Retryable reports whether status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
