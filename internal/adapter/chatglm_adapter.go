package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
)

// ErrInvalidChatGLMKey is returned when token signing is enabled but the key
// is not of the form "id.secret".
var ErrInvalidChatGLMKey = errors.New(`chatglm api key must have the form "id.secret" to sign tokens`)

// ChatGLMAdapter implements Provider for the ChatGLM (Zhipu) v4 chat API.
// It sends the OpenAI-compatible envelope plus a fresh request_id.
type ChatGLMAdapter struct {
	apiKey string
	model  string
	opts   options
}

// NewChatGLMAdapter creates a new ChatGLMAdapter with the given API key and model.
func NewChatGLMAdapter(apiKey, model string, opts ...Option) *ChatGLMAdapter {
	return &ChatGLMAdapter{
		apiKey: apiKey,
		model:  model,
		opts:   newOptions(config.DefaultChatGLMEndpoint, opts),
	}
}

// Name returns the provider identifier.
func (a *ChatGLMAdapter) Name() domain.ProviderType {
	return domain.ProviderChatGLM
}

// BuildRequest creates the chat completion POST for messages.
func (a *ChatGLMAdapter) BuildRequest(ctx context.Context, messages []action.Message) (*http.Request, error) {
	bearer, err := a.bearer()
	if err != nil {
		return nil, err
	}

	payload := ChatCompletionRequest{
		Model:       a.model,
		Messages:    toChatMessages(messages),
		Temperature: a.opts.temperature,
		Stream:      false,
		RequestID:   a.opts.newRequestID(),
	}
	return newJSONRequest(ctx, a.opts.endpoint, bearer, payload)
}

// ParseResponse extracts the first completion.
func (a *ChatGLMAdapter) ParseResponse(body []byte) (string, error) {
	return parseChatCompletion(domain.ProviderChatGLM, body)
}

// bearer returns the Authorization credential: the raw key, or a token signed
// with the secret half of the key when JWT auth is on.
func (a *ChatGLMAdapter) bearer() (string, error) {
	if !a.opts.jwtAuth {
		return a.apiKey, nil
	}

	id, secret, err := splitChatGLMKey(a.apiKey)
	if err != nil {
		return "", err
	}

	now := a.opts.now()
	claims := jwt.MapClaims{
		"api_key":   id,
		"exp":       now.Add(a.opts.tokenTTL).UnixMilli(),
		"timestamp": now.UnixMilli(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["sign_type"] = "SIGN"

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign chatglm token: %w", err)
	}
	return signed, nil
}

// splitChatGLMKey splits an "id.secret" key for token signing.
func splitChatGLMKey(key string) (string, string, error) {
	id, secret, ok := strings.Cut(key, ".")
	if !ok || id == "" || secret == "" {
		return "", "", &config.ConfigurationError{
			Op:    "validate",
			Field: config.KeyChatGLMAPIKey,
			Err:   ErrInvalidChatGLMKey,
		}
	}
	return id, secret, nil
}
