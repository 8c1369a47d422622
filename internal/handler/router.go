package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter registers the sidecar routes on a new gin engine.
func NewRouter(h *ActionHandler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		logger.Warn("could not disable proxy headers", slog.String("error", err.Error()))
	}

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoopbackOnlyMiddleware())
	router.Use(LoggingMiddleware(logger))

	v1 := router.Group("/v1")
	v1.POST("/actions/:action", h.HandleAction)
	v1.POST("/connection/test", h.HandleTestConnection)
	v1.GET("/config", h.HandleGetConfig)
	v1.PUT("/config", h.HandleUpdateConfig)

	router.GET("/health", h.HandleHealth)

	return router
}
