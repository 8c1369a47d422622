// Package domain contains the core business entities and value objects.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRetryAfter is the wait hint used when a provider throttles a request
// without saying for how long.
const DefaultRetryAfter = 60 * time.Second

// UnsupportedProviderError is returned when the configuration names a
// provider that has no adapter. It is never retried.
type UnsupportedProviderError struct {
	Provider ProviderType
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported API provider: %q", string(e.Provider))
}

// RateLimitError is returned when the provider answers with HTTP 429.
// It is surfaced immediately; the caller decides when to try again.
type RateLimitError struct {
	Provider   ProviderType
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rate limit exceeded"
	}
	return fmt.Sprintf("%s %s (retry after %ds)", e.Provider, msg, e.WaitSeconds())
}

// WaitSeconds returns the retry hint rounded up to whole seconds.
func (e *RateLimitError) WaitSeconds() int {
	d := e.RetryAfter
	if d <= 0 {
		d = DefaultRetryAfter
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// MalformedResponseError is returned when a 200 response cannot be read as a
// chat completion envelope. It is a contract violation and is not retried.
type MalformedResponseError struct {
	Provider ProviderType
	Reason   string
	Snippet  string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("invalid response format from %s API: %s", e.Provider, e.Reason)
	if e.Snippet != "" {
		msg += " (response_snippet=" + e.Snippet + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RequestFailedError is returned once transient failures have used up the
// configured retry budget. Err holds the last failure.
type RequestFailedError struct {
	Provider ProviderType
	Attempts int
	Err      error
}

func (e *RequestFailedError) Error() string {
	noun := "attempts"
	if e.Attempts == 1 {
		noun = "attempt"
	}
	return fmt.Sprintf("%s API request failed after %d %s: %v", e.Provider, e.Attempts, noun, e.Err)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err is, or wraps, a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsAPIError reports whether err belongs to the request taxonomy above.
func IsAPIError(err error) bool {
	var (
		unsupported *UnsupportedProviderError
		rateLimit   *RateLimitError
		malformed   *MalformedResponseError
		failed      *RequestFailedError
	)
	return errors.As(err, &unsupported) ||
		errors.As(err, &rateLimit) ||
		errors.As(err, &malformed) ||
		errors.As(err, &failed)
}
