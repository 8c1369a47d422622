package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/worker"
)

func TestOutcome_Text(t *testing.T) {
	tests := []struct {
		name     string
		outcome  worker.Outcome
		wantCode int
		want     []string
	}{
		{"success", worker.Success{Text: "An article."}, ExitSuccess, []string{"An article."}},
		{"rate limited", worker.RateLimited{Message: "slow down", WaitSeconds: 17}, ExitRateLimited,
			[]string{"[RATE LIMITED]", "slow down", "wait 17 seconds"}},
		{"failed", worker.Failed{Message: "API Error: boom", Err: errors.New("boom")}, ExitFailure,
			[]string{"ERROR", "API Error: boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := NewConsole(&buf, false).Outcome(tt.outcome)

			assert.Equal(t, tt.wantCode, code)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			assert.NotContains(t, buf.String(), "\x1b[", "no color codes outside a terminal")
		})
	}
}

func TestOutcome_JSON(t *testing.T) {
	var buf bytes.Buffer
	code := NewConsole(&buf, true).Outcome(worker.RateLimited{Message: "slow down", WaitSeconds: 5})
	assert.Equal(t, ExitRateLimited, code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "rate_limited", doc["status"])
	assert.Equal(t, float64(5), doc["wait_seconds"])
}

func TestConnection(t *testing.T) {
	var buf bytes.Buffer
	code := NewConsole(&buf, false).Connection("ChatGLM", "glm-4", worker.Success{Text: "hello"})
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, buf.String(), "Connected to ChatGLM")

	buf.Reset()
	code = NewConsole(&buf, false).Connection("ChatGLM", "glm-4", worker.Failed{Message: "Error: no key"})
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, buf.String(), "Error: no key")
}

func TestConfig_MasksCredentials(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAIAPIKey = "sk-abcdefghijklmnop"

	var buf bytes.Buffer
	NewConsole(&buf, false).Config(cfg, "/tmp/config.json")
	out := buf.String()

	assert.NotContains(t, out, cfg.OpenAIAPIKey)
	assert.Contains(t, out, config.MaskKey(cfg.OpenAIAPIKey))
	for _, key := range config.Keys() {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, out, "Source: /tmp/config.json")

	buf.Reset()
	NewConsole(&buf, true).Config(cfg, "/tmp/config.json")
	assert.False(t, strings.Contains(buf.String(), cfg.OpenAIAPIKey))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "OpenAI", doc[config.KeyProvider])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(worker.Success{}))
	assert.Equal(t, ExitRateLimited, ExitCode(worker.RateLimited{}))
	assert.Equal(t, ExitFailure, ExitCode(worker.Failed{}))
}
