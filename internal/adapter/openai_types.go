// Package adapter provides implementations for external AI provider integrations.
package adapter

// OpenAI-compatible chat completion types. Both supported providers speak
// this envelope; ChatGLM adds a request identifier.

// ChatCompletionRequest represents a chat completion request body.
type ChatCompletionRequest struct {
	// Model specifies which model to use (e.g., "gpt-3.5-turbo", "glm-4").
	Model string `json:"model"`

	// Messages contains the conversation. VocabMaster always sends one user message.
	Messages []ChatMessage `json:"messages"`

	// Temperature is always sent, including zero.
	Temperature float64 `json:"temperature"`

	// Stream is always sent as false.
	Stream bool `json:"stream"`

	// RequestID is a unique per-request identifier. ChatGLM only.
	RequestID string `json:"request_id,omitempty"`
}

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	// Role is one of: "system", "user", "assistant".
	Role string `json:"role"`

	// Content is the message text content.
	Content string `json:"content"`
}

// ChatCompletionResponse represents a chat completion response.
type ChatCompletionResponse struct {
	// ID is the unique identifier for this completion.
	ID string `json:"id"`

	// Created is the Unix timestamp of when the completion was created.
	Created int64 `json:"created"`

	// Model is the model used for completion.
	Model string `json:"model"`

	// Choices contains the generated completions.
	Choices []ChatChoice `json:"choices"`

	// Usage contains token usage statistics.
	Usage Usage `json:"usage"`
}

// ChatChoice represents a single completion choice.
type ChatChoice struct {
	// Index is the position of this choice in the list.
	Index int `json:"index"`

	// Message contains the generated message. Nil when the provider omitted it.
	Message *ChoiceMessage `json:"message"`

	// FinishReason indicates why the model stopped generating.
	// Values: "stop", "length", "content_filter", "sensitive".
	FinishReason string `json:"finish_reason"`
}

// ChoiceMessage is the message inside a completion choice. Content is a
// pointer so an absent or null content is distinguishable from "".
type ChoiceMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an error body from an OpenAI-compatible API.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`

	// RetryAfter is a throttling hint in seconds some gateways put at the top level.
	RetryAfter *float64 `json:"retry_after,omitempty"`
}

// ErrorDetail contains the error details.
type ErrorDetail struct {
	// Message is the human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error (e.g., "rate_limit_exceeded"). OpenAI only.
	Type string `json:"type,omitempty"`

	// Code is a string for OpenAI and a numeric string for ChatGLM; either may be null.
	Code any `json:"code,omitempty"`

	// RetryAfter is a throttling hint in seconds. Optional.
	RetryAfter *float64 `json:"retry_after,omitempty"`
}
