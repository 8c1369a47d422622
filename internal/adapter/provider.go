// Package adapter provides implementations for external AI provider integrations.
// Each adapter builds the provider's HTTP request and parses its response;
// sending and retrying happen in package completion.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
)

const (
	// DefaultChatGLMTokenTTL is how long a signed ChatGLM token stays valid.
	DefaultChatGLMTokenTTL = 30 * time.Minute

	snippetLimit = 200
)

// Provider defines the interface for provider adapters.
// All provider implementations must satisfy this interface.
type Provider interface {
	// Name returns the provider's identifier.
	Name() domain.ProviderType

	// BuildRequest returns a ready-to-send HTTP request for messages.
	// It is called once per attempt, so each attempt gets a fresh body.
	BuildRequest(ctx context.Context, messages []action.Message) (*http.Request, error)

	// ParseResponse extracts the trimmed text of the first completion from a
	// 200 response body. A body that does not match the envelope yields a
	// *domain.MalformedResponseError.
	ParseResponse(body []byte) (string, error)
}

// options holds adapter settings.
type options struct {
	endpoint    string
	temperature float64

	// ChatGLM only; the OpenAI adapter ignores these.
	jwtAuth      bool
	tokenTTL     time.Duration
	now          func() time.Time
	newRequestID func() string
}

// Option is a functional option for configuring adapters.
type Option func(*options)

// WithEndpoint sets the chat completions URL.
func WithEndpoint(url string) Option {
	return func(o *options) {
		if url != "" {
			o.endpoint = url
		}
	}
}

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(temperature float64) Option {
	return func(o *options) {
		o.temperature = temperature
	}
}

// WithJWTAuth makes the ChatGLM adapter sign "id.secret" keys into a
// short-lived HS256 token instead of sending the key itself.
func WithJWTAuth(enabled bool) Option {
	return func(o *options) {
		o.jwtAuth = enabled
	}
}

// WithTokenTTL sets the lifetime of signed ChatGLM tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.tokenTTL = ttl
		}
	}
}

// WithClock sets the time source used when signing tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRequestIDFunc sets the generator for ChatGLM request identifiers.
func WithRequestIDFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newRequestID = fn
		}
	}
}

func newOptions(defaultEndpoint string, opts []Option) options {
	o := options{
		endpoint:     defaultEndpoint,
		tokenTTL:     DefaultChatGLMTokenTTL,
		now:          time.Now,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the adapter for the configured provider. This is the only
// place that switches on the provider name.
func New(cfg config.Configuration, opts ...Option) (Provider, error) {
	switch cfg.Provider {
	case domain.ProviderOpenAI:
		base := []Option{WithEndpoint(cfg.OpenAIEndpoint), WithTemperature(cfg.Temperature)}
		return NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIModel, append(base, opts...)...), nil
	case domain.ProviderChatGLM:
		if cfg.ChatGLMJWTAuth {
			if _, _, err := splitChatGLMKey(cfg.ChatGLMAPIKey); err != nil {
				return nil, err
			}
		}
		base := []Option{
			WithEndpoint(cfg.ChatGLMEndpoint),
			WithTemperature(cfg.Temperature),
			WithJWTAuth(cfg.ChatGLMJWTAuth),
		}
		return NewChatGLMAdapter(cfg.ChatGLMAPIKey, cfg.ChatGLMModel, append(base, opts...)...), nil
	default:
		return nil, &domain.UnsupportedProviderError{Provider: cfg.Provider}
	}
}

func toChatMessages(messages []action.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// newJSONRequest builds an authenticated POST carrying payload as JSON.
func newJSONRequest(ctx context.Context, endpoint, bearer string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req, nil
}

// parseChatCompletion reads the first choice of an OpenAI-compatible envelope.
func parseChatCompletion(provider domain.ProviderType, body []byte) (string, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &domain.MalformedResponseError{
			Provider: provider,
			Reason:   "body is not a chat completion",
			Snippet:  Snippet(body),
			Err:      err,
		}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.MalformedResponseError{
			Provider: provider,
			Reason:   "response has no choices",
			Snippet:  Snippet(body),
		}
	}
	msg := resp.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", &domain.MalformedResponseError{
			Provider: provider,
			Reason:   "first choice has no message content",
			Snippet:  Snippet(body),
		}
	}
	return strings.TrimSpace(*msg.Content), nil
}

// ErrorInfo is what can be read from a non-200 response body.
type ErrorInfo struct {
	Message    string
	RetryAfter time.Duration
}

// ParseErrorBody extracts the provider message and any retry hint from an
// error body. Unrecognised bodies yield a trimmed snippet as the message.
func ParseErrorBody(body []byte) ErrorInfo {
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ErrorInfo{Message: Snippet(body)}
	}

	info := ErrorInfo{Message: strings.TrimSpace(resp.Error.Message)}
	if info.Message == "" {
		info.Message = Snippet(body)
	}

	hint := resp.Error.RetryAfter
	if hint == nil {
		hint = resp.RetryAfter
	}
	if hint != nil && *hint > 0 {
		info.RetryAfter = time.Duration(*hint * float64(time.Second))
	}
	return info
}

// Snippet returns at most the first 200 bytes of body, trimmed, for error
// messages.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= snippetLimit {
		return s
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
