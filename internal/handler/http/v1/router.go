package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	protected := api.Group("")
	if len(h.cfg.APIKeys) > 0 {
		protected.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	}

	// Управление сессией мониторинга
	monitoring := protected.Group("/monitoring")
	{
		monitoring.POST("/start", h.startMonitoring)
		monitoring.POST("/stop", h.stopMonitoring)
		monitoring.GET("/state", h.getState)
	}

	// История событий
	bumps := protected.Group("/speed-bumps")
	{
		bumps.GET("", h.listSpeedBumps)
		bumps.DELETE("", h.clearHistory)
	}

	// Позиции от браузерного клиента
	positions := protected.Group("/positions")
	{
		positions.POST("", h.ingestPosition)
		positions.POST("/errors", h.ingestPositionError)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
