// Package resilient wraps outbound HTTP calls with bounded retries and a
// circuit breaker. Every downstream dependency gets its own Client, and
// with it an independent breaker; the state inside one Client is shared by
// all concurrent callers.
package resilient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned without any network attempt while the breaker
// cooldown is running.
var ErrCircuitOpen = errors.New("circuit open")

// Config controls one downstream client.
type Config struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Retries is the number of re-attempts after the first try.
	Retries int
	// FailureThreshold is the consecutive exhausted-call count that opens
	// the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open once tripped.
	Cooldown time.Duration
	// RequestsPerSecond rate-limits outbound attempts. Zero or negative
	// disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Status is an observability snapshot of the breaker.
type Status struct {
	IsOpen              bool      `json:"is_open"`
	OpenUntil           time.Time `json:"open_until"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// StatusError reports a non-2xx response from the downstream.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// Response is a successful (2xx) downstream reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client is a retrying, circuit-breaking JSON POST caller.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	now        func() time.Time

	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
}

// New creates a Client for one downstream dependency.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, burst),
		now:        time.Now,
	}
}

// Post sends body as JSON and returns the first 2xx reply. Transport
// errors and 5xx replies are retried up to Retries times; 4xx replies are
// not. An exhausted call counts one consecutive failure; at the threshold
// the breaker opens for the cooldown. The first call after the cooldown is
// a normal attempt, there is no separate probe state.
func (c *Client) Post(ctx context.Context, url string, body any) (*Response, error) {
	c.mu.Lock()
	if until := c.openUntil; c.now().Before(until) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: downstream unavailable until %s", ErrCircuitOpen, until.Format(time.RFC3339))
	}
	c.mu.Unlock()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		resp, err := c.attempt(ctx, url, payload)
		if err == nil {
			c.recordSuccess()
			return resp, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && (se.Code < 500 || se.Code > 599) {
			// Client errors are the caller's problem, not transient.
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	c.recordFailure()
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, url string, payload []byte) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: data}
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// PostJSON posts body and decodes the 2xx reply into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	resp, err := c.Post(ctx, url, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.consecutiveFailures = 0
	c.openUntil = time.Time{}
	c.mu.Unlock()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.consecutiveFailures++
	if c.consecutiveFailures >= c.cfg.FailureThreshold {
		c.openUntil = c.now().Add(c.cfg.Cooldown)
	}
	c.mu.Unlock()
}

// Status reports the breaker state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		IsOpen:              c.now().Before(c.openUntil),
		OpenUntil:           c.openUntil,
		ConsecutiveFailures: c.consecutiveFailures,
	}
}
