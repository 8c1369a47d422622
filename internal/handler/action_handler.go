// Package handler serves the VocabMaster actions over a loopback HTTP API.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
	"github.com/hpn/vocab-master/internal/worker"
)

// Response statuses.
const (
	StatusSuccess     = "success"
	StatusRateLimited = "rate_limited"
	StatusError       = "error"
)

// Context keys read by LoggingMiddleware.
const (
	ctxAction  = "action"
	ctxOutcome = "outcome"
)

// ActionRequest is the body of POST /v1/actions/:action.
type ActionRequest struct {
	Params map[string]any `json:"params"`
}

// ActionResponse is the envelope every action endpoint answers with.
type ActionResponse struct {
	Status      string `json:"status"`
	Text        string `json:"text,omitempty"`
	Message     string `json:"message,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

// ActionHandler runs actions through a worker. After a provider rate limits a
// request, further requests for that provider are answered with 429 until
// the wait hint has elapsed.
type ActionHandler struct {
	store    *config.Store
	worker   *worker.Worker
	cooldown *domain.Cooldown
	logger   *slog.Logger
}

// ActionHandlerOption is a functional option for configuring ActionHandler.
type ActionHandlerOption func(*ActionHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ActionHandlerOption {
	return func(h *ActionHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCooldown shares a cooldown gate with the handler.
func WithCooldown(cooldown *domain.Cooldown) ActionHandlerOption {
	return func(h *ActionHandler) {
		if cooldown != nil {
			h.cooldown = cooldown
		}
	}
}

// NewActionHandler creates a new ActionHandler. store and w must use the
// same configuration file.
func NewActionHandler(store *config.Store, w *worker.Worker, opts ...ActionHandlerOption) *ActionHandler {
	h := &ActionHandler{
		store:    store,
		worker:   w,
		cooldown: domain.NewCooldown(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleAction handles POST /v1/actions/:action.
func (h *ActionHandler) HandleAction(c *gin.Context) {
	tag := c.Param("action")
	c.Set(ctxAction, tag)

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(c, http.StatusBadRequest, "Error: invalid request body: "+err.Error())
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	h.run(c, tag, req.Params, func(text string) string { return text })
}

// HandleTestConnection handles POST /v1/connection/test.
func (h *ActionHandler) HandleTestConnection(c *gin.Context) {
	tag := string(action.TagTest)
	c.Set(ctxAction, tag)

	params := map[string]any{"message": action.DefaultTestMessage}
	h.run(c, tag, params, func(string) string { return "ok" })
}

// run executes one action behind the cooldown gate and writes the envelope.
// Requests that could never be sent are rejected before the gate.
func (h *ActionHandler) run(c *gin.Context, tag string, params map[string]any, text func(string) string) {
	if _, err := action.Parse(tag, params); err != nil {
		h.sendError(c, http.StatusBadRequest, "Error: "+err.Error())
		return
	}

	provider := h.provider()
	if provider != "" {
		if wait, throttled := h.cooldown.Remaining(provider); throttled {
			rl := &domain.RateLimitError{Provider: provider, Message: "cooling down", RetryAfter: wait}
			h.logger.Debug("provider cooling down, request not sent",
				slog.String("provider", string(provider)),
				slog.Int("wait_seconds", rl.WaitSeconds()),
			)
			h.sendRateLimited(c, worker.RateLimited{Message: rl.Error(), WaitSeconds: rl.WaitSeconds()})
			return
		}
	}

	switch o := h.worker.Execute(c.Request.Context(), tag, params).(type) {
	case worker.Success:
		c.Set(ctxOutcome, StatusSuccess)
		c.JSON(http.StatusOK, ActionResponse{Status: StatusSuccess, Text: text(o.Text)})
	case worker.RateLimited:
		if provider != "" {
			h.cooldown.Trip(provider, time.Duration(o.WaitSeconds)*time.Second)
		}
		h.sendRateLimited(c, o)
	case worker.Failed:
		h.sendError(c, failureStatus(o.Err), o.Message)
	}
}

// provider reads the provider the next request will use. A configuration
// that cannot be read disables the gate; the worker reports the problem.
func (h *ActionHandler) provider() domain.ProviderType {
	cfg, err := h.store.Read()
	if err != nil {
		return ""
	}
	return cfg.Provider
}

// HandleGetConfig handles GET /v1/config.
func (h *ActionHandler) HandleGetConfig(c *gin.Context) {
	cfg, err := h.store.Read()
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, cfg.Redacted())
}

// HandleUpdateConfig handles PUT /v1/config. The body is a map of
// configuration keys to new values.
func (h *ActionHandler) HandleUpdateConfig(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.sendError(c, http.StatusBadRequest, "Error: invalid request body: "+err.Error())
		return
	}

	cfg, err := h.store.Save(updates)
	if err != nil {
		status := http.StatusInternalServerError
		if config.IsConfigurationError(err) {
			status = http.StatusBadRequest
		}
		h.sendError(c, status, "Error: "+err.Error())
		return
	}

	h.logger.Info("configuration updated", slog.Any("keys", sortedUpdateKeys(updates)))
	c.JSON(http.StatusOK, cfg.Redacted())
}

// HandleHealth handles GET /health.
func (h *ActionHandler) HandleHealth(c *gin.Context) {
	cooling := gin.H{}
	for p, until := range h.cooldown.Snapshot() {
		cooling[string(p)] = ceilSeconds(time.Until(until))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"config_path": h.store.Path(),
		"cooldowns":   cooling,
	})
}

func (h *ActionHandler) sendRateLimited(c *gin.Context, o worker.RateLimited) {
	c.Set(ctxOutcome, StatusRateLimited)
	c.Header("Retry-After", strconv.Itoa(o.WaitSeconds))
	c.JSON(http.StatusTooManyRequests, ActionResponse{
		Status:      StatusRateLimited,
		Message:     o.Message,
		WaitSeconds: o.WaitSeconds,
	})
}

func (h *ActionHandler) sendError(c *gin.Context, status int, message string) {
	c.Set(ctxOutcome, StatusError)
	c.JSON(status, ActionResponse{Status: StatusError, Message: message})
}

// failureStatus separates caller mistakes from provider failures.
func failureStatus(err error) int {
	var paramErr *action.ParamError
	var unsupported *domain.UnsupportedProviderError
	switch {
	case errors.Is(err, action.ErrUnknownAction),
		errors.As(err, &paramErr),
		errors.As(err, &unsupported),
		config.IsConfigurationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func sortedUpdateKeys(updates map[string]any) []string {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
