// Package backend is the HTTP client for the hospital REST services reached
// through the API gateway.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Credentials supplies the bearer token for outgoing requests and receives the
// teardown when the gateway rejects it.
type Credentials interface {
	Token(ctx context.Context) string
	Revoke(ctx context.Context) error
}

// Observer is notified about upstream calls. Metrics implement it.
type Observer interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
	ObserveRevocation()
}

// Client wraps interactions with the gateway.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials Credentials
	observer    Observer
	logger      *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver attaches an upstream call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration, credentials Credentials, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		credentials: credentials,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, path, in, out)
}

// do is Do with a separate route label so metrics do not carry ids.
func (c *Client) do(ctx context.Context, method, route, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, route, out)
}

type anonymousKey struct{}

// withoutCredentials marks ctx so send neither attaches the session token
// nor tears the session down on a 401.
func withoutCredentials(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	anon, _ := ctx.Value(anonymousKey{}).(bool)
	return anon
}

func (c *Client) send(req *http.Request, endpoint string, out any) error {
	ctx := req.Context()
	anonymous := isAnonymous(ctx)
	if c.credentials != nil && !anonymous {
		if token := c.credentials.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return fmt.Errorf("backend: %s %s: %w", req.Method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(endpoint, resp.StatusCode, start)

	if resp.StatusCode == http.StatusUnauthorized {
		if !anonymous {
			c.revoke(ctx, req.Method, endpoint)
		}
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return newAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("backend: decode %s %s: %w", req.Method, endpoint, err)
	}
	return nil
}

// revoke finishes clearing the session before the caller gets a chance to
// redirect or issue another request with the rejected token.
func (c *Client) revoke(ctx context.Context, method, endpoint string) {
	if c.observer != nil {
		c.observer.ObserveRevocation()
	}
	if c.credentials == nil {
		return
	}
	if err := c.credentials.Revoke(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("revoke session after 401", slog.String("method", method), slog.String("endpoint", endpoint), slog.Any("error", err))
		return
	}
	c.logger.Info("session revoked by upstream", slog.String("method", method), slog.String("endpoint", endpoint))
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, status, time.Since(start))
	}
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}
