// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/morales-javx/javxseek/internal/model"
)

// Configuration constants for the completion API.
const (
	// DefaultBaseURL is the DeepSeek OpenAI-compatible API root.
	DefaultBaseURL = "https://api.deepseek.com/v1"

	// DefaultTimeout bounds connection setup and response headers. The body
	// itself is bounded by DefaultIdleTimeout between reads.
	DefaultTimeout = 90 * time.Second

	// DefaultIdleTimeout is the longest silence tolerated mid-stream.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of attempts for transient errors.
	DefaultMaxRetries = 3

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// maxErrorBody caps how much of a failed response is read.
	maxErrorBody = 64 * 1024

	userAgent = "javxseek/1.0"
)

// DefaultModels is the rotation list used when none is configured.
var DefaultModels = []string{"deepseek-chat", "deepseek-vl", "deepseek-math"}

// Payload is the chat-completion request body.
type Payload struct {
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

// Client opens streaming chat completions against an OpenAI-compatible API.
// A Client is safe for concurrent use once configured.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	idleTimeout time.Duration
	logger      *zap.Logger

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the given API key. An empty key is allowed;
// OpenStream then fails with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		// No client timeout for streaming - controlled via context and
		// the transport's header timeout
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: DefaultTimeout,
				TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		maxRetries:  DefaultMaxRetries,
		idleTimeout: DefaultIdleTimeout,
		logger:      zap.NewNop(),
		sleep:       sleepContext,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithTimeout sets the connect and response-header timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok && timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
	return c
}

// WithIdleTimeout sets the longest gap allowed between body reads.
// Zero disables the idle check.
func (c *Client) WithIdleTimeout(timeout time.Duration) *Client {
	c.idleTimeout = timeout
	return c
}

// WithMaxRetries sets the maximum number of attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithLogger sets the logger used for request diagnostics.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key.
// SECURITY: never expose key fragments in logs.
func (c *Client) KeyFingerprint() string {
	return Fingerprint(c.apiKey)
}

// Fingerprint returns the first 8 hex chars of the key's SHA-256, or "none".
func Fingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// STREAMING REQUEST
// =============================================================================

// OpenStream posts the payload and returns the event-stream body. Network
// errors and 5xx responses are retried with exponential backoff before any
// byte of the body is handed out; 4xx responses are classified at once.
// The caller must close the returned body.
func (c *Client) OpenStream(ctx context.Context, p Payload) (io.ReadCloser, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	p.Stream = true

	bodyBytes, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			c.logger.Debug("retrying completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, err := c.openOnce(ctx, p.Model, bodyBytes)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: max retries exceeded: %w", ErrTransport, lastErr)
}

// openOnce performs a single attempt.
func (c *Client) openOnce(ctx context.Context, modelName string, bodyBytes []byte) (io.ReadCloser, error) {
	reqCtx, cancel := context.WithCancelCause(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel(nil)
		return nil, err
	}

	c.logger.Debug("completion response",
		zap.String("model", modelName),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("key", c.KeyFingerprint()))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel(nil)
		return nil, classifyResponse(resp.StatusCode, body)
	}

	return newIdleBody(reqCtx, resp.Body, c.idleTimeout, cancel), nil
}

// setHeaders sets the required headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)
}

// calculateBackoff returns the delay before the given attempt:
// 500ms, 1s, 2s, ... capped at retryMaxDelay.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// =============================================================================
// IDLE TIMEOUT BODY
// =============================================================================

// idleBody cancels the request when no bytes arrive for the idle period.
type idleBody struct {
	rc     io.ReadCloser
	ctx    context.Context
	cancel context.CancelCauseFunc
	idle   time.Duration
	timer  *time.Timer
	once   sync.Once
}

func newIdleBody(ctx context.Context, rc io.ReadCloser, idle time.Duration, cancel context.CancelCauseFunc) *idleBody {
	b := &idleBody{rc: rc, ctx: ctx, cancel: cancel, idle: idle}
	if idle > 0 {
		b.timer = time.AfterFunc(idle, func() { cancel(ErrIdleTimeout) })
	}
	return b
}

// Read implements io.Reader.
func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 && b.timer != nil {
		b.timer.Reset(b.idle)
	}
	if err != nil && err != io.EOF && errors.Is(context.Cause(b.ctx), ErrIdleTimeout) {
		return n, ErrIdleTimeout
	}
	return n, err
}

// Close implements io.Closer.
func (b *idleBody) Close() error {
	var err error
	b.once.Do(func() {
		if b.timer != nil {
			b.timer.Stop()
		}
		err = b.rc.Close()
		b.cancel(nil)
	})
	return err
}
