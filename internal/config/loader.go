package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"
)

const (
	defaultConfigType = "json"

	// EnvOpenAIAPIKey overrides openai_api_key without touching the file.
	EnvOpenAIAPIKey = "VOCABMASTER_OPENAI_API_KEY"

	// EnvChatGLMAPIKey overrides chatglm_api_key without touching the file.
	EnvChatGLMAPIKey = "VOCABMASTER_CHATGLM_API_KEY"
)

// envOverrides maps credential keys to the environment variable that may
// supply them.
var envOverrides = map[string]string{
	KeyOpenAIAPIKey:  EnvOpenAIAPIKey,
	KeyChatGLMAPIKey: EnvChatGLMAPIKey,
}

// knownKeys lists every persisted key, in the order validation reports them.
var knownKeys = []string{
	KeyProvider,
	KeyOpenAIAPIKey,
	KeyChatGLMAPIKey,
	KeyOpenAIModel,
	KeyChatGLMModel,
	KeyTargetLanguage,
	KeyFeedbackLanguage,
	KeyTemperature,
	KeyMaxRetries,
	KeyRetryDelay,
	KeyTimeout,
	KeyOpenAIEndpoint,
	KeyChatGLMEndpoint,
	KeyChatGLMJWTAuth,
}

// IsKnownKey reports whether key is a persisted configuration key.
func IsKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Keys returns every persisted configuration key.
func Keys() []string {
	return append([]string(nil), knownKeys...)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	for key, value := range Defaults().Settings() {
		v.SetDefault(key, value)
	}
}

// readPersisted returns the key/value pairs stored at path. The boolean is
// false when no file exists, which is not an error.
func readPersisted(path string) (map[string]any, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &ConfigurationError{
			Op:  "read",
			Err: fmt.Errorf("failed to stat config file: %w", err),
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(defaultConfigType)

	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return nil, true, &ConfigurationError{
				Op:  "parse",
				Err: fmt.Errorf("invalid JSON in config file: %w", err),
			}
		}
		return nil, true, &ConfigurationError{
			Op:  "read",
			Err: fmt.Errorf("failed to read config file: %w", err),
		}
	}

	return v.AllSettings(), true, nil
}

// decode turns a flat settings map into a Configuration. Missing keys fall
// back to defaults.
func decode(settings map[string]any) (Configuration, error) {
	v := viper.New()
	setDefaults(v)

	if err := v.MergeConfigMap(settings); err != nil {
		return Configuration{}, &ConfigurationError{
			Op:  "parse",
			Err: fmt.Errorf("failed to merge settings: %w", err),
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return Configuration{}, &ConfigurationError{
			Op:  "parse",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}
	return cfg, nil
}

// applyEnv overlays credentials from the environment onto settings. Keys
// present in skip are left alone so an explicit update always wins.
func applyEnv(settings map[string]any, skip map[string]any) {
	for key, env := range envOverrides {
		if _, ok := skip[key]; ok {
			continue
		}
		if value, ok := os.LookupEnv(env); ok && value != "" {
			settings[key] = value
		}
	}
}

// WriteDefaults creates a configuration file holding the built-in defaults.
// An existing file is only replaced when overwrite is set.
func WriteDefaults(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return &ConfigurationError{
				Op:  "write",
				Err: fmt.Errorf("%s already exists: %w", path, fs.ErrExist),
			}
		}
	}
	return writeSettings(path, Defaults().Settings())
}

// writeSettings persists settings as indented JSON using a temp file and a
// rename, so readers never observe a partial document.
func writeSettings(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return &ConfigurationError{Op: "write", Err: fmt.Errorf("encode config: %w", err)}
	}
	data = append(data, '\n')

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return &ConfigurationError{Op: "write", Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ConfigurationError{Op: "write", Err: fmt.Errorf("create config dir: %w", err)}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneSettings(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
