package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
)

var testMessages = []action.Message{{Role: action.RoleUser, Content: "Hello, world!"}}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	return body
}

func TestOpenAIAdapter_BuildRequest(t *testing.T) {
	a := NewOpenAIAdapter("sk-test", "gpt-4o-mini",
		WithEndpoint("http://127.0.0.1:9999/v1/chat/completions"),
		WithTemperature(0),
	)

	req, err := a.BuildRequest(context.Background(), testMessages)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}

	if req.Method != http.MethodPost {
		t.Errorf("Method = %s, want POST", req.Method)
	}
	if got := req.URL.String(); got != "http://127.0.0.1:9999/v1/chat/completions" {
		t.Errorf("URL = %s", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want 'Bearer sk-test'", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	body := decodeBody(t, req)
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
	if stream, ok := body["stream"]; !ok || stream != false {
		t.Errorf("stream = %v (present=%v), want explicit false", stream, ok)
	}
	if temp, ok := body["temperature"]; !ok || temp != float64(0) {
		t.Errorf("temperature = %v (present=%v), want explicit 0", temp, ok)
	}
	if _, ok := body["request_id"]; ok {
		t.Error("OpenAI body must not carry request_id")
	}

	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("messages = %v, want one message", body["messages"])
	}
	msg := msgs[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "Hello, world!" {
		t.Errorf("message = %v", msg)
	}
}

func TestOpenAIAdapter_DefaultEndpoint(t *testing.T) {
	req, err := NewOpenAIAdapter("sk-test", "gpt-3.5-turbo").BuildRequest(context.Background(), testMessages)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.URL.String() != config.DefaultOpenAIEndpoint {
		t.Errorf("URL = %s, want %s", req.URL, config.DefaultOpenAIEndpoint)
	}
}

func TestChatGLMAdapter_BuildRequest(t *testing.T) {
	a := NewChatGLMAdapter("glm-raw-key", "glm-4",
		WithTemperature(0.3),
		WithRequestIDFunc(func() string { return "req-1" }),
	)

	req, err := a.BuildRequest(context.Background(), testMessages)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}

	if req.URL.String() != config.DefaultChatGLMEndpoint {
		t.Errorf("URL = %s, want %s", req.URL, config.DefaultChatGLMEndpoint)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer glm-raw-key" {
		t.Errorf("Authorization = %q", got)
	}

	body := decodeBody(t, req)
	if body["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", body["request_id"])
	}
	if body["model"] != "glm-4" {
		t.Errorf("model = %v, want glm-4", body["model"])
	}
	if body["temperature"] != 0.3 {
		t.Errorf("temperature = %v, want 0.3", body["temperature"])
	}
	if body["stream"] != false {
		t.Errorf("stream = %v, want false", body["stream"])
	}
}

func TestChatGLMAdapter_RequestIDIsUniqueUUID(t *testing.T) {
	a := NewChatGLMAdapter("glm-raw-key", "glm-4")

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		req, err := a.BuildRequest(context.Background(), testMessages)
		if err != nil {
			t.Fatalf("BuildRequest() error = %v", err)
		}
		id, _ := decodeBody(t, req)["request_id"].(string)
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("request_id %q is not a UUID: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("request_id %q repeated", id)
		}
		seen[id] = true
	}
}

func TestChatGLMAdapter_JWTAuth(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := NewChatGLMAdapter("my-id.my-secret", "glm-4",
		WithJWTAuth(true),
		WithTokenTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	req, err := a.BuildRequest(context.Background(), testMessages)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}

	raw := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte("my-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("token does not verify with the key secret: %v", err)
	}

	if token.Header["sign_type"] != "SIGN" {
		t.Errorf("sign_type header = %v, want SIGN", token.Header["sign_type"])
	}

	claims := token.Claims.(jwt.MapClaims)
	if claims["api_key"] != "my-id" {
		t.Errorf("api_key claim = %v, want my-id", claims["api_key"])
	}
	if claims["timestamp"] != float64(now.UnixMilli()) {
		t.Errorf("timestamp claim = %v, want %d", claims["timestamp"], now.UnixMilli())
	}
	if claims["exp"] != float64(now.Add(time.Minute).UnixMilli()) {
		t.Errorf("exp claim = %v, want %d", claims["exp"], now.Add(time.Minute).UnixMilli())
	}
}

func TestChatGLMAdapter_JWTAuthRejectsPlainKey(t *testing.T) {
	a := NewChatGLMAdapter("no-dot-here", "glm-4", WithJWTAuth(true))

	_, err := a.BuildRequest(context.Background(), testMessages)
	if !errors.Is(err, ErrInvalidChatGLMKey) {
		t.Fatalf("BuildRequest() error = %v, want ErrInvalidChatGLMKey", err)
	}
	if config.FieldOf(err) != config.KeyChatGLMAPIKey {
		t.Errorf("FieldOf() = %q, want %q", config.FieldOf(err), config.KeyChatGLMAPIKey)
	}
}

func TestNew_RejectsUnsignableChatGLMKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = domain.ProviderChatGLM
	cfg.ChatGLMJWTAuth = true

	for _, key := range []string{"no-dot-here", ".secret", "id."} {
		cfg.ChatGLMAPIKey = key
		_, err := New(cfg)
		if !config.IsConfigurationError(err) {
			t.Fatalf("New(%q) error = %v, want ConfigurationError", key, err)
		}
		if !errors.Is(err, ErrInvalidChatGLMKey) {
			t.Errorf("New(%q) error = %v, want ErrInvalidChatGLMKey", key, err)
		}
	}

	cfg.ChatGLMJWTAuth = false
	cfg.ChatGLMAPIKey = "no-dot-here"
	if _, err := New(cfg); err != nil {
		t.Errorf("New() without token signing error = %v", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		want          string
		wantMalformed bool
	}{
		{
			name: "first choice trimmed",
			body: `{"choices":[{"index":0,"message":{"role":"assistant","content":"  Hello!\n"}},{"index":1,"message":{"content":"ignored"}}]}`,
			want: "Hello!",
		},
		{
			name:          "missing choices",
			body:          `{"id":"x","object":"chat.completion"}`,
			wantMalformed: true,
		},
		{
			name:          "empty choices",
			body:          `{"choices":[]}`,
			wantMalformed: true,
		},
		{
			name:          "choice without message",
			body:          `{"choices":[{}]}`,
			wantMalformed: true,
		},
		{
			name:          "null content",
			body:          `{"choices":[{"message":{"role":"assistant","content":null}}]}`,
			wantMalformed: true,
		},
		{
			name: "empty content is not malformed",
			body: `{"choices":[{"message":{"role":"assistant","content":""}}]}`,
			want: "",
		},
		{
			name:          "not JSON",
			body:          `<html>Bad Gateway</html>`,
			wantMalformed: true,
		},
		{
			name:          "wrong shape",
			body:          `{"choices":"nope"}`,
			wantMalformed: true,
		},
	}

	providers := []Provider{
		NewOpenAIAdapter("k", "m"),
		NewChatGLMAdapter("k", "m"),
	}

	for _, p := range providers {
		for _, tt := range tests {
			t.Run(string(p.Name())+"/"+tt.name, func(t *testing.T) {
				got, err := p.ParseResponse([]byte(tt.body))
				if tt.wantMalformed {
					var me *domain.MalformedResponseError
					if !errors.As(err, &me) {
						t.Fatalf("ParseResponse() error = %v, want MalformedResponseError", err)
					}
					if me.Provider != p.Name() {
						t.Errorf("Provider = %s, want %s", me.Provider, p.Name())
					}
					return
				}
				if err != nil {
					t.Fatalf("ParseResponse() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("ParseResponse() = %q, want %q", got, tt.want)
				}
			})
		}
	}
}

func TestNew(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAIAPIKey = "sk-test"

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := p.(*OpenAIAdapter); !ok {
		t.Errorf("New() = %T, want *OpenAIAdapter", p)
	}

	cfg.Provider = domain.ProviderChatGLM
	cfg.ChatGLMAPIKey = "glm"
	p, err = New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := p.(*ChatGLMAdapter); !ok {
		t.Errorf("New() = %T, want *ChatGLMAdapter", p)
	}

	cfg.Provider = "Gemini"
	_, err = New(cfg)
	var unsupported *domain.UnsupportedProviderError
	if !errors.As(err, &unsupported) {
		t.Fatalf("New() error = %v, want UnsupportedProviderError", err)
	}
	if unsupported.Provider != "Gemini" {
		t.Errorf("Provider = %q, want Gemini", unsupported.Provider)
	}
}

func TestNew_UsesConfiguredEndpoint(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = domain.ProviderChatGLM
	cfg.ChatGLMAPIKey = "glm"
	cfg.ChatGLMEndpoint = "http://localhost:1234/chat"
	cfg.ChatGLMModel = "glm-4-flash"

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	req, err := p.BuildRequest(context.Background(), testMessages)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.URL.String() != "http://localhost:1234/chat" {
		t.Errorf("URL = %s", req.URL)
	}
	if decodeBody(t, req)["model"] != "glm-4-flash" {
		t.Error("configured chatglm_model not sent")
	}
}

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantMsg   string
		wantAfter time.Duration
	}{
		{
			name:    "openai error",
			body:    `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			wantMsg: "Rate limit reached",
		},
		{
			name:    "chatglm numeric-string code",
			body:    `{"error":{"code":"1302","message":"concurrency too high"}}`,
			wantMsg: "concurrency too high",
		},
		{
			name:      "nested retry hint",
			body:      `{"error":{"message":"slow down","retry_after":12}}`,
			wantMsg:   "slow down",
			wantAfter: 12 * time.Second,
		},
		{
			name:      "top-level retry hint",
			body:      `{"error":{"message":"slow down"},"retry_after":2.5}`,
			wantMsg:   "slow down",
			wantAfter: 2500 * time.Millisecond,
		},
		{
			name:    "plain text",
			body:    "upstream unavailable\n",
			wantMsg: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseErrorBody([]byte(tt.body))
			if info.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", info.Message, tt.wantMsg)
			}
			if info.RetryAfter != tt.wantAfter {
				t.Errorf("RetryAfter = %v, want %v", info.RetryAfter, tt.wantAfter)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := Snippet([]byte(long))
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("Snippet() length = %d, want 200 bytes plus ellipsis", len(got))
	}
	if Snippet([]byte("  short  ")) != "short" {
		t.Errorf("Snippet() should trim short bodies")
	}
}
