// Package config loads, validates and persists the VocabMaster settings.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError represents a configuration loading, validation or
// persistence failure. It is never retried.
type ConfigurationError struct {
	Op    string // Operation that failed (read, parse, validate, lock, write)
	Field string // First offending key, when the failure is about one field
	Err   error  // Underlying error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s error: %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("config %s error: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// MissingKeyError represents a missing required configuration key error.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required configuration key '%s' is missing", e.Key)
}

// InvalidTypeError represents a value of the wrong JSON type.
type InvalidTypeError struct {
	Key      string
	Expected string
	Got      any
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid type for %s: expected %s, got %s", e.Key, e.Expected, describeType(e.Got))
}

// InvalidValueError represents an invalid configuration value error.
type InvalidValueError struct {
	Key           string
	Value         interface{}
	AllowedValues []string
	Reason        string
}

func (e *InvalidValueError) Error() string {
	if len(e.AllowedValues) > 0 {
		return fmt.Sprintf("invalid value '%v' for key '%s', allowed values: %s",
			e.Value, e.Key, strings.Join(e.AllowedValues, ", "))
	}
	if e.Reason != "" {
		return fmt.Sprintf("invalid value '%v' for key '%s': %s", e.Value, e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid value '%v' for key '%s'", e.Value, e.Key)
}

// IsConfigurationError checks if an error is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsMissingKeyError checks if an error is, or wraps, a MissingKeyError.
func IsMissingKeyError(err error) bool {
	var mk *MissingKeyError
	return errors.As(err, &mk)
}

// FieldOf returns the offending field of a ConfigurationError, or "".
func FieldOf(err error) string {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

func describeType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64:
		return "number"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
