// Package config loads, validates and persists the VocabMaster settings.
// The persisted form is a flat JSON document read through Viper; every write
// goes through Store.Save, which validates the merged result first.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hpn/vocab-master/internal/domain"
)

// Persisted keys. They double as mapstructure and JSON tags.
const (
	KeyProvider         = "api_provider"
	KeyOpenAIAPIKey     = "openai_api_key"
	KeyChatGLMAPIKey    = "chatglm_api_key"
	KeyOpenAIModel      = "openai_model"
	KeyChatGLMModel     = "chatglm_model"
	KeyTargetLanguage   = "target_language"
	KeyFeedbackLanguage = "feedback_language"
	KeyTemperature      = "temperature"
	KeyMaxRetries       = "max_retries"
	KeyRetryDelay       = "retry_delay"
	KeyTimeout          = "timeout"
	KeyOpenAIEndpoint   = "openai_endpoint"
	KeyChatGLMEndpoint  = "chatglm_endpoint"
	KeyChatGLMJWTAuth   = "chatglm_jwt_auth"
)

// Default values applied before the persisted file is overlaid.
const (
	DefaultProvider         = domain.ProviderOpenAI
	DefaultOpenAIModel      = "gpt-3.5-turbo"
	DefaultChatGLMModel     = "glm-4"
	DefaultTargetLanguage   = "English"
	DefaultFeedbackLanguage = "English"
	DefaultTemperature      = 0.7
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 1.0
	DefaultTimeout          = 60
	DefaultOpenAIEndpoint   = "https://api.openai.com/v1/chat/completions"
	DefaultChatGLMEndpoint  = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
)

// Configuration holds every VocabMaster setting.
// Values are plain data; a Configuration is safe to copy and share read-only.
type Configuration struct {
	// Provider selects the backend used for every request.
	Provider domain.ProviderType `json:"api_provider" mapstructure:"api_provider" validate:"required,oneof=OpenAI ChatGLM"`

	// OpenAIAPIKey is required only while Provider is OpenAI.
	OpenAIAPIKey string `json:"openai_api_key" mapstructure:"openai_api_key" validate:"required_if=Provider OpenAI"`

	// ChatGLMAPIKey is required only while Provider is ChatGLM.
	ChatGLMAPIKey string `json:"chatglm_api_key" mapstructure:"chatglm_api_key" validate:"required_if=Provider ChatGLM"`

	OpenAIModel  string `json:"openai_model" mapstructure:"openai_model" validate:"required"`
	ChatGLMModel string `json:"chatglm_model" mapstructure:"chatglm_model" validate:"required"`

	// TargetLanguage is the language articles and example sentences are written in.
	TargetLanguage string `json:"target_language" mapstructure:"target_language"`

	// FeedbackLanguage is the language sentence critiques are written in.
	FeedbackLanguage string `json:"feedback_language" mapstructure:"feedback_language"`

	// Temperature is forwarded to the provider unchanged.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxRetries bounds the attempt loop. Zero still allows one attempt.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelay is the pause between attempts, in seconds.
	RetryDelay float64 `json:"retry_delay" mapstructure:"retry_delay" validate:"gte=0"`

	// Timeout is the per-request HTTP timeout, in seconds.
	Timeout int `json:"timeout" mapstructure:"timeout" validate:"gt=0"`

	OpenAIEndpoint  string `json:"openai_endpoint" mapstructure:"openai_endpoint" validate:"required,url"`
	ChatGLMEndpoint string `json:"chatglm_endpoint" mapstructure:"chatglm_endpoint" validate:"required,url"`

	// ChatGLMJWTAuth signs "id.secret" ChatGLM keys into a short-lived token
	// instead of sending the raw key.
	ChatGLMJWTAuth bool `json:"chatglm_jwt_auth" mapstructure:"chatglm_jwt_auth"`
}

// Defaults returns the built-in configuration.
func Defaults() Configuration {
	return Configuration{
		Provider:         DefaultProvider,
		OpenAIModel:      DefaultOpenAIModel,
		ChatGLMModel:     DefaultChatGLMModel,
		TargetLanguage:   DefaultTargetLanguage,
		FeedbackLanguage: DefaultFeedbackLanguage,
		Temperature:      DefaultTemperature,
		MaxRetries:       DefaultMaxRetries,
		RetryDelay:       DefaultRetryDelay,
		Timeout:          DefaultTimeout,
		OpenAIEndpoint:   DefaultOpenAIEndpoint,
		ChatGLMEndpoint:  DefaultChatGLMEndpoint,
	}
}

// Settings flattens the configuration into its persisted key/value form.
func (c Configuration) Settings() map[string]any {
	return map[string]any{
		KeyProvider:         string(c.Provider),
		KeyOpenAIAPIKey:     c.OpenAIAPIKey,
		KeyChatGLMAPIKey:    c.ChatGLMAPIKey,
		KeyOpenAIModel:      c.OpenAIModel,
		KeyChatGLMModel:     c.ChatGLMModel,
		KeyTargetLanguage:   c.TargetLanguage,
		KeyFeedbackLanguage: c.FeedbackLanguage,
		KeyTemperature:      c.Temperature,
		KeyMaxRetries:       c.MaxRetries,
		KeyRetryDelay:       c.RetryDelay,
		KeyTimeout:          c.Timeout,
		KeyOpenAIEndpoint:   c.OpenAIEndpoint,
		KeyChatGLMEndpoint:  c.ChatGLMEndpoint,
		KeyChatGLMJWTAuth:   c.ChatGLMJWTAuth,
	}
}

// APIKey returns the credential of the active provider.
func (c Configuration) APIKey() string {
	switch c.Provider {
	case domain.ProviderChatGLM:
		return c.ChatGLMAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// Model returns the model name of the active provider.
func (c Configuration) Model() string {
	switch c.Provider {
	case domain.ProviderChatGLM:
		return c.ChatGLMModel
	default:
		return c.OpenAIModel
	}
}

// Endpoint returns the chat completions URL of the active provider.
func (c Configuration) Endpoint() string {
	switch c.Provider {
	case domain.ProviderChatGLM:
		return c.ChatGLMEndpoint
	default:
		return c.OpenAIEndpoint
	}
}

// RequestTimeout returns Timeout as a duration.
func (c Configuration) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RetryDelayDuration returns RetryDelay as a duration.
func (c Configuration) RetryDelayDuration() time.Duration {
	if c.RetryDelay <= 0 {
		return 0
	}
	return time.Duration(c.RetryDelay * float64(time.Second))
}

// Attempts returns how many times a request may be sent.
func (c Configuration) Attempts() int {
	if c.MaxRetries <= 0 {
		return 1
	}
	return c.MaxRetries
}

// Redacted returns a copy with both credentials masked, for display.
func (c Configuration) Redacted() Configuration {
	c.OpenAIAPIKey = MaskKey(c.OpenAIAPIKey)
	c.ChatGLMAPIKey = MaskKey(c.ChatGLMAPIKey)
	return c
}

// MaskKey shows the first 4 and last 4 characters of a credential.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vocabmaster", "config.json"), nil
}
