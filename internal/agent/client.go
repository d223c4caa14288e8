// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/advisor-tui/internal/logging"
)

// =============================================================================
// CLIENT CONSTANTS
// =============================================================================

const (
	// DefaultTimeout is the timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize bounds non-streaming response bodies.
	MaxResponseSize = 1 * 1024 * 1024
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// sharedHTTPClient serves probes and other short requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient serves SSE runs (no timeout, context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the advisor agent backend. A zero-value Client is not
// usable; construct with NewClient. Safe for concurrent use.
type Client struct {
	baseURL    string
	maxRetries int
	limiter    *rate.Limiter
	httpClient *http.Client
	streamer   *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the pooled client used for short requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStreamingClient overrides the client used for SSE runs.
func WithStreamingClient(hc *http.Client) Option {
	return func(c *Client) { c.streamer = hc }
}

// WithMaxRetries sets the retry budget for transient stream failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRateLimit throttles outbound runs to n per minute. n <= 0 disables
// limiting.
func WithRateLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		} else {
			c.limiter = nil
		}
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: DefaultMaxRetries,
		httpClient: sharedHTTPClient,
		streamer:   sharedStreamingClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether a backend URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// RUN (STREAMING)
// =============================================================================

// Run sends the conversation to the agent and invokes callback for each
// decoded event. Transient failures (network errors, 5xx) are retried with
// exponential backoff; 4xx responses are not. Content received before a
// failed retry chain is preserved in the returned StreamError.
func (c *Client) Run(ctx context.Context, input RunInput, callback EventCallback) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if err := input.Validate(); err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	bodyBytes, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshal run input: %w", err)
	}

	var lastErr error
	var accumulated strings.Builder

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			logging.Named("agent").Debug("retrying run",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := c.newRunRequest(ctx, input.ThreadID, bodyBytes)
		if err != nil {
			return err
		}

		resp, err := c.streamer.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}

		// Client errors are never retried.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
			resp.Body.Close()
			return decodeAPIError(resp.StatusCode, body)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
			resp.Body.Close()
			lastErr = decodeAPIError(resp.StatusCode, body)
			continue
		}

		wrapped := func(ev Event) {
			if ev.Type == EventTextMessageContent {
				accumulated.WriteString(ev.Delta)
			}
			callback(ev)
		}

		err = processStream(ctx, resp.Body, wrapped)
		resp.Body.Close()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// Connection dropped mid-stream. Keep what arrived.
			lastErr = &StreamError{
				Partial: accumulated.String(),
				Err:     err,
			}
			continue
		}

		return nil
	}

	if lastErr != nil {
		if accumulated.Len() > 0 {
			return &StreamError{
				Partial: accumulated.String(),
				Err:     fmt.Errorf("max retries exceeded: %w", lastErr),
			}
		}
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return errors.New("max retries exceeded")
}

// newRunRequest builds the POST request for a run.
func (c *Client) newRunRequest(ctx context.Context, threadID string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Thread-ID", threadID)
	return req, nil
}

// RunChan is the channel form of Run for select-based consumers. Both
// channels are closed when the run ends; errChan carries at most one error.
func (c *Client) RunChan(ctx context.Context, input RunInput) (<-chan Event, <-chan error) {
	eventChan := make(chan Event, 64)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		err := c.Run(ctx, input, func(ev Event) {
			select {
			case eventChan <- ev:
			case <-ctx.Done():
			}
		})

		if err != nil {
			select {
			case errChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	return eventChan, errChan
}

// RunCollect runs the conversation and returns the fully accumulated
// response. The one-shot ask path uses this instead of a live stream.
func (c *Client) RunCollect(ctx context.Context, input RunInput) (string, error) {
	acc := NewAccumulator()
	err := c.Run(ctx, input, acc.Add)
	if err != nil {
		return acc.Content(), err
	}
	if msg := acc.RunError(); msg != "" {
		return acc.Content(), fmt.Errorf("%w: %s", ErrRunFailed, msg)
	}
	return acc.Content(), nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health probes GET /health and returns the backend's self-report.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &status, nil
}

// =============================================================================
// BACKOFF
// =============================================================================

// calculateBackoff returns the exponential delay for a retry attempt:
// 500ms, 1s, 2s, ... capped at retryMaxDelay.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
