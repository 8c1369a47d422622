package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hpn/vocab-master/internal/domain"
)

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindInteger
	kindBool
)

func (k valueKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindInteger:
		return "integer"
	case kindBool:
		return "boolean"
	default:
		return "string"
	}
}

// requiredKeys must be present with the right type before anything else is
// looked at.
var requiredKeys = []struct {
	key  string
	kind valueKind
}{
	{KeyProvider, kindString},
	{KeyTemperature, kindNumber},
	{KeyMaxRetries, kindInteger},
	{KeyRetryDelay, kindNumber},
	{KeyTimeout, kindInteger},
}

// optionalKinds types the remaining keys. They may be absent.
var optionalKinds = map[string]valueKind{
	KeyOpenAIAPIKey:     kindString,
	KeyChatGLMAPIKey:    kindString,
	KeyOpenAIModel:      kindString,
	KeyChatGLMModel:     kindString,
	KeyTargetLanguage:   kindString,
	KeyFeedbackLanguage: kindString,
	KeyOpenAIEndpoint:   kindString,
	KeyChatGLMEndpoint:  kindString,
	KeyChatGLMJWTAuth:   kindBool,
}

// IsStringKey reports whether key holds a string value.
func IsStringKey(key string) bool {
	for _, rk := range requiredKeys {
		if rk.key == key {
			return rk.kind == kindString
		}
	}
	kind, ok := optionalKinds[key]
	return ok && kind == kindString
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report JSON key names so errors match the persisted document.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks a decoded configuration. The returned error is a
// *ConfigurationError naming the first offending field.
func Validate(cfg Configuration) error {
	return validateStruct(cfg)
}

// resolve runs the full pipeline on a raw settings map: type checks, decode,
// then field rules.
func resolve(settings map[string]any) (Configuration, error) {
	if err := validateRaw(settings); err != nil {
		return Configuration{}, err
	}
	cfg, err := decode(settings)
	if err != nil {
		return Configuration{}, err
	}
	if err := validateStruct(cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// validateRaw checks presence and JSON type of each key before decoding,
// since decoding is weakly typed and would quietly accept "3" for 3.
func validateRaw(settings map[string]any) error {
	for _, req := range requiredKeys {
		value, ok := settings[req.key]
		if !ok || value == nil {
			return &ConfigurationError{
				Op:    "validate",
				Field: req.key,
				Err:   &MissingKeyError{Key: req.key},
			}
		}
		if !hasKind(value, req.kind) {
			return &ConfigurationError{
				Op:    "validate",
				Field: req.key,
				Err:   &InvalidTypeError{Key: req.key, Expected: req.kind.String(), Got: value},
			}
		}
	}

	for _, key := range knownKeys {
		kind, ok := optionalKinds[key]
		if !ok {
			continue
		}
		value, present := settings[key]
		if !present || value == nil {
			continue
		}
		if !hasKind(value, kind) {
			return &ConfigurationError{
				Op:    "validate",
				Field: key,
				Err:   &InvalidTypeError{Key: key, Expected: kind.String(), Got: value},
			}
		}
	}
	return nil
}

func hasKind(value any, kind valueKind) bool {
	switch kind {
	case kindString:
		_, ok := value.(string)
		return ok
	case kindBool:
		_, ok := value.(bool)
		return ok
	case kindNumber:
		switch v := value.(type) {
		case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case json.Number:
			_, err := v.Float64()
			return err == nil
		}
		return false
	case kindInteger:
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			// JSON decoding yields float64 for every number.
			return v == math.Trunc(v) && !math.IsInf(v, 0)
		case float32:
			return float64(v) == math.Trunc(float64(v))
		case json.Number:
			_, err := v.Int64()
			return err == nil
		}
		return false
	}
	return false
}

func validateStruct(cfg Configuration) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ConfigurationError{Op: "validate", Err: err}
	}

	fe := fieldErrs[0]
	return &ConfigurationError{
		Op:    "validate",
		Field: fe.Field(),
		Err:   translateFieldError(fe),
	}
}

func translateFieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required", "required_if":
		return &MissingKeyError{Key: fe.Field()}
	case "oneof":
		allowed := make([]string, 0, 2)
		for _, p := range domain.SupportedProviders() {
			allowed = append(allowed, p.String())
		}
		return &InvalidValueError{Key: fe.Field(), Value: fe.Value(), AllowedValues: allowed}
	case "gte":
		return &InvalidValueError{Key: fe.Field(), Value: fe.Value(), Reason: "must be >= " + fe.Param()}
	case "gt":
		return &InvalidValueError{Key: fe.Field(), Value: fe.Value(), Reason: "must be > " + fe.Param()}
	case "url":
		return &InvalidValueError{Key: fe.Field(), Value: fe.Value(), Reason: "must be an absolute URL"}
	default:
		return &InvalidValueError{Key: fe.Field(), Value: fe.Value(), Reason: fmt.Sprintf("failed %q rule", fe.Tag())}
	}
}
