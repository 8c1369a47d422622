package handler

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware returns a middleware that logs request details in JSON format.
// Action endpoints add the action name and its outcome.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if tag := c.GetString(ctxAction); tag != "" {
			attrs = append(attrs, slog.String("action", tag))
		}
		if outcome := c.GetString(ctxOutcome); outcome != "" {
			attrs = append(attrs, slog.String("outcome", outcome))
		}

		logger.Info("request completed", attrs...)
	}
}

// RecoveryMiddleware returns a middleware that recovers from panics.
// It logs the error and answers with the error envelope.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, ActionResponse{
					Status:  StatusError,
					Message: "Error: internal server error",
				})
			}
		}()

		c.Next()
	}
}

// LoopbackOnlyMiddleware rejects requests that do not come from this machine.
func LoopbackOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := net.ParseIP(c.ClientIP())
		if ip == nil || !ip.IsLoopback() {
			c.AbortWithStatusJSON(http.StatusForbidden, ActionResponse{
				Status:  StatusError,
				Message: "Error: only loopback clients are accepted",
			})
			return
		}
		c.Next()
	}
}
