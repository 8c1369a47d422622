// Package completion turns VocabMaster actions into provider text. It owns the
// retry policy and failure classification; everything provider specific sits
// behind adapter.Provider.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/adapter"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
)

// StatusError is a non-200, non-429 response. It is transient and retried.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// TransportError is a failure to reach the provider or read its answer.
// It is transient and retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client sends actions to the configured provider. A Client holds a fixed
// configuration snapshot; build a new one after the configuration changes.
type Client struct {
	cfg         config.Configuration
	provider    adapter.Provider
	httpClient  *http.Client
	logger      *slog.Logger
	sleeper     func(time.Duration)
	adapterOpts []adapter.Option
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client, whose timeout comes from
// the configuration.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger for request events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithAdapterOptions passes options through to the provider adapter.
func WithAdapterOptions(opts ...adapter.Option) Option {
	return func(c *Client) {
		c.adapterOpts = append(c.adapterOpts, opts...)
	}
}

// New resolves the provider for cfg and returns a client bound to it.
// An unknown provider fails with *domain.UnsupportedProviderError and an
// invalid configuration with *config.ConfigurationError.
func New(cfg config.Configuration, opts ...Option) (*Client, error) {
	if !cfg.Provider.IsSupported() {
		return nil, &domain.UnsupportedProviderError{Provider: cfg.Provider}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	provider, err := adapter.New(cfg, c.adapterOpts...)
	if err != nil {
		return nil, err
	}
	c.provider = provider
	c.logger = c.logger.With("provider", string(provider.Name()), "model", cfg.Model())
	return c, nil
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() domain.ProviderType {
	return c.provider.Name()
}

// Config returns the configuration snapshot the client was built from.
func (c *Client) Config() config.Configuration {
	return c.cfg
}

// Dispatch parses tag and params and completes the resulting action.
func (c *Client) Dispatch(ctx context.Context, tag string, params map[string]any) (string, error) {
	a, err := action.Parse(tag, params)
	if err != nil {
		return "", err
	}
	return c.Complete(ctx, a)
}

// Complete sends a and returns the provider's text.
//
// Rate limits and malformed responses are returned at once. Transport errors
// and unexpected statuses are retried up to the configured attempt count with
// retry_delay between attempts, then reported as *domain.RequestFailedError.
func (c *Client) Complete(ctx context.Context, a action.Action) (string, error) {
	messages := action.Messages(a, c.languages())
	attempts := c.cfg.Attempts()
	delay := c.cfg.RetryDelayDuration()
	logger := c.logger.With("action", string(a.Tag()))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		text, err := c.sendOnce(ctx, messages)
		if err == nil {
			logger.Info("completion succeeded",
				"attempt", attempt,
				"latency_ms", time.Since(start).Milliseconds(),
				"chars", len(text),
			)
			return text, nil
		}

		if !isTransient(err) {
			if domain.IsRateLimit(err) {
				logger.Warn("provider rate limited request", "attempt", attempt, "error", err)
			} else if ctx.Err() == nil {
				logger.Error("completion failed", "attempt", attempt, "error", err)
			}
			return "", err
		}

		lastErr = err
		logger.Warn("completion attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", &domain.RequestFailedError{
		Provider: c.provider.Name(),
		Attempts: attempts,
		Err:      lastErr,
	}
}

// GenerateArticle asks for a short article using every word.
func (c *Client) GenerateArticle(ctx context.Context, words []string) (string, error) {
	return c.Complete(ctx, action.GenerateArticle{Words: words})
}

// EvaluateSentence asks for feedback on a sentence written with targetWord.
func (c *Client) EvaluateSentence(ctx context.Context, sentence, targetWord string) (string, error) {
	return c.Complete(ctx, action.EvaluateSentence{Sentence: sentence, TargetWord: targetWord})
}

// GenerateExamples asks for count example sentences. A count below 1 uses
// the default of 3.
func (c *Client) GenerateExamples(ctx context.Context, word string, count int) (string, error) {
	return c.Complete(ctx, action.GenerateExamples{Word: word, Count: count})
}

// TestConnection sends the test action through the normal request path.
// The error carries the same classification as any other action.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	if _, err := c.Complete(ctx, action.Test{Message: action.DefaultTestMessage}); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) languages() action.Languages {
	return action.Languages{
		Target:   c.cfg.TargetLanguage,
		Feedback: c.cfg.FeedbackLanguage,
	}
}

func (c *Client) sendOnce(ctx context.Context, messages []action.Message) (string, error) {
	req, err := c.provider.BuildRequest(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", c.provider.Name(), err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", c.rateLimitError(resp.Header, body)
	case resp.StatusCode != http.StatusOK:
		info := adapter.ParseErrorBody(body)
		return "", &StatusError{StatusCode: resp.StatusCode, Message: info.Message}
	}

	return c.provider.ParseResponse(body)
}

func (c *Client) rateLimitError(header http.Header, body []byte) *domain.RateLimitError {
	info := adapter.ParseErrorBody(body)

	wait, ok := parseRetryAfter(header.Get("Retry-After"))
	if !ok {
		wait = info.RetryAfter
	}
	if wait <= 0 {
		wait = domain.DefaultRetryAfter
	}

	msg := info.Message
	if msg == "" {
		msg = "rate limit exceeded"
	}
	return &domain.RateLimitError{
		Provider:   c.provider.Name(),
		Message:    msg,
		RetryAfter: wait,
	}
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isTransient(err error) bool {
	var statusErr *StatusError
	var transportErr *TransportError
	return errors.As(err, &statusErr) || errors.As(err, &transportErr)
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay <= 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
