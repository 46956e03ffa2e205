// Package remote implements the RemoteClient abstraction from spec.md §4.2:
// an authenticated HTTP-style service handle with single-flight
// re-authentication, configurable timeouts, optional proxy, and a bounded
// auth-retry policy. Grounded on the teacher's PagerDuty Events API client
// (internal/infrastructure/publishing/pagerduty_client.go) for the
// http.Client/rate-limiter/retry shape, generalized from a single fixed
// sink to an arbitrary authenticated endpoint.
package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// Authenticator performs the actual credential exchange for a Connector,
// returning an opaque bearer token (or any value Client should attach to
// outgoing requests) on success.
type Authenticator interface {
	Authenticate(ctx context.Context, connector model.Connector) (token string, err error)
}

// Response is the outcome of Execute/ExecuteWithAuthRetry: status code and
// raw body bytes, already drained so the caller never has to manage the
// underlying http.Response's lifetime.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Client is the concrete RemoteClient. One Client is constructed per
// Connector and shared across all concurrent pipelines touching that
// endpoint (via AppConnectors); its auth state is therefore guarded by mu
// for the single-flight contract in spec.md §4.2 and §9.
type Client struct {
	connector     model.Connector
	authenticator Authenticator
	httpClient    *http.Client
	rateLimiter   *rate.Limiter
	logger        *slog.Logger

	mu       sync.Mutex
	isAuthed bool
	token    string
}

// Config controls Client construction beyond what the Connector itself
// carries.
type Config struct {
	Authenticator Authenticator
	Logger        *slog.Logger
	// RateLimitPerSecond throttles outbound calls for this connector; 0
	// disables rate limiting.
	RateLimitPerSecond float64
}

// New constructs a Client bound to connector, honoring its timeouts and
// optional proxy (spec.md §4.2 Proxy).
func New(connector model.Connector, cfg Config) (*Client, error) {
	if cfg.Authenticator == nil {
		return nil, fmt.Errorf("%w: remote client requires an authenticator", model.ErrConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		DialContext: (&net.Dialer{
			Timeout: connector.ConnectTimeout,
		}).DialContext,
	}

	if connector.HasProxy() {
		proxyURL, err := url.Parse(fmt.Sprintf("http://%s:%d", connector.ProxyHost, connector.ProxyPort))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid proxy for connector %s: %v", model.ErrConfig, connector.ID, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   connector.ReadTimeout + connector.WriteTimeout,
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1+int(cfg.RateLimitPerSecond))
	}

	return &Client{
		connector:     connector,
		authenticator: cfg.Authenticator,
		httpClient:    httpClient,
		rateLimiter:   limiter,
		logger:        cfg.Logger,
	}, nil
}

// IsAuthenticated reports the current auth state. Checked-then-acted-upon
// callers must still go through Authenticate, which re-checks inside its
// own lock (spec.md §4.2, §9 single-flight auth).
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAuthed
}

// Authenticate ensures the client holds a valid token, coalescing concurrent
// callers into exactly one underlying exchange while unauthenticated: the
// lock is acquired first, and isAuthed is re-checked inside it, so a second
// goroutine arriving while the first authenticates blocks until the first
// finishes and then observes isAuthed == true without re-authenticating.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAuthed {
		return nil
	}

	token, err := c.authenticator.Authenticate(ctx, c.connector)
	if err != nil {
		c.logger.Warn("authentication failed", "connector", c.connector.ID, "error", err)
		return fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}

	c.token = token
	c.isAuthed = true
	return nil
}

// ResetAuth clears the current auth state, forcing the next Authenticate
// call to perform a fresh exchange.
func (c *Client) ResetAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isAuthed = false
	c.token = ""
}

// Endpoint returns the base URL of the Connector this Client is bound to, so
// callers can build request paths relative to it.
func (c *Client) Endpoint() string {
	return c.connector.Endpoint
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

// Execute performs req once. A 401 is surfaced as model.ErrUnauthorized (the
// caller decides whether to retry, per spec.md; ExecuteWithAuthRetry does
// this automatically). Any other HTTP error (>=400) or I/O error is logged
// and defaultOnFailure is returned with a nil error — it is not retried.
func (c *Client) Execute(ctx context.Context, req Request, defaultOnFailure *Response) (*Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", model.ErrCancelled, err)
		}
	}

	httpReq, err := req.httpRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", model.ErrTransport, err)
	}
	if token := c.currentToken(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrCancelled, ctx.Err())
		}
		c.logger.Warn("remote call failed", "connector", c.connector.ID, "url", req.URL, "error", err)
		return defaultOnFailure, nil
	}
	defer resp.Body.Close()

	body, err := readAll(resp)
	if err != nil {
		c.logger.Warn("failed reading remote response", "connector", c.connector.ID, "error", err)
		return defaultOnFailure, nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: connector %s", model.ErrUnauthorized, c.connector.ID)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn("remote returned error status", "connector", c.connector.ID, "status", resp.StatusCode)
		return defaultOnFailure, nil
	}

	return &Response{StatusCode: resp.StatusCode, Body: body, Header: resp.Header}, nil
}

// ExecuteWithAuthRetry implements the auth-retry policy from spec.md §4.2:
// authenticate if needed, execute once; on a 401, cancel, ResetAuth,
// re-authenticate, and retry exactly once with a fresh, equivalent request.
// A second 401 propagates as model.ErrUnauthorized.
func (c *Client) ExecuteWithAuthRetry(ctx context.Context, req Request, defaultOnFailure *Response) (*Response, error) {
	if !c.IsAuthenticated() {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.Execute(ctx, req, defaultOnFailure)
	if err == nil || !errors.Is(err, model.ErrUnauthorized) {
		return resp, err
	}

	c.ResetAuth()
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	return c.Execute(ctx, req, defaultOnFailure)
}
