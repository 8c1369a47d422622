package adapter

import (
	"context"
	"net/http"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
)

// OpenAIAdapter implements Provider for the OpenAI chat completions API.
type OpenAIAdapter struct {
	apiKey string
	model  string
	opts   options
}

// NewOpenAIAdapter creates a new OpenAIAdapter with the given API key and model.
func NewOpenAIAdapter(apiKey, model string, opts ...Option) *OpenAIAdapter {
	return &OpenAIAdapter{
		apiKey: apiKey,
		model:  model,
		opts:   newOptions(config.DefaultOpenAIEndpoint, opts),
	}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() domain.ProviderType {
	return domain.ProviderOpenAI
}

// BuildRequest creates the chat completion POST for messages.
func (a *OpenAIAdapter) BuildRequest(ctx context.Context, messages []action.Message) (*http.Request, error) {
	payload := ChatCompletionRequest{
		Model:       a.model,
		Messages:    toChatMessages(messages),
		Temperature: a.opts.temperature,
		Stream:      false,
	}
	return newJSONRequest(ctx, a.opts.endpoint, a.apiKey, payload)
}

// ParseResponse extracts the first completion.
func (a *OpenAIAdapter) ParseResponse(body []byte) (string, error) {
	return parseChatCompletion(domain.ProviderOpenAI, body)
}
