// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and shared by the config, adapter,
// completion and handler packages.
package domain

// ProviderType identifies a chat-completion backend by the name persisted in
// the configuration file.
type ProviderType string

const (
	// ProviderOpenAI selects the OpenAI chat completions API.
	ProviderOpenAI ProviderType = "OpenAI"

	// ProviderChatGLM selects the Zhipu ChatGLM chat completions API.
	ProviderChatGLM ProviderType = "ChatGLM"
)

// SupportedProviders returns the providers the client knows how to talk to,
// in the order they are offered to the user.
func SupportedProviders() []ProviderType {
	return []ProviderType{ProviderOpenAI, ProviderChatGLM}
}

// IsSupported reports whether p is one of SupportedProviders.
func (p ProviderType) IsSupported() bool {
	switch p {
	case ProviderOpenAI, ProviderChatGLM:
		return true
	default:
		return false
	}
}

// String returns the persisted provider name.
func (p ProviderType) String() string {
	return string(p)
}
