package v1

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/speedbump_logger/internal/config"
	"github.com/shenikar/speedbump_logger/internal/geolocation"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/service"
	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// PositionSink принимает позиции и ошибки браузерного клиента
type PositionSink interface {
	Deliver(sample *models.PositionSample) error
	Fail(code geolocation.ErrorCode, message string) error
}

// HealthCheck проверяет одну зависимость
type HealthCheck func(ctx context.Context) error

type Handler struct {
	monitoringService service.MonitoringService
	positions         PositionSink
	logger            *logrus.Logger
	validate          *validator.Validate
	cfg               *config.Config
	checks            map[string]HealthCheck
}

func NewHandler(monitoringService service.MonitoringService, positions PositionSink, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		monitoringService: monitoringService,
		positions:         positions,
		logger:            logger,
		validate:          validator.New(),
		cfg:               cfg,
		checks:            make(map[string]HealthCheck),
	}
}

// AddHealthCheck регистрирует проверку зависимости для /system/health
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// @Summary Start monitoring
// @Description Request location permission if the backend needs it and open a position watch. Idempotent. Requires API key.
// @Tags Monitoring
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} MonitoringStateResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Location permission denied"
// @Failure 503 {object} map[string]string "Position source unavailable"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /monitoring/start [post]
func (h *Handler) startMonitoring(c *gin.Context) {
	log := h.logger.WithField("method", "startMonitoring")

	state, err := h.monitoringService.Start(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, geolocation.ErrPermissionDenied):
			log.WithError(err).Warn("Location permission denied")
			c.JSON(http.StatusForbidden, gin.H{"error": "location permission denied"})
		case errors.Is(err, geolocation.ErrSourceUnavailable):
			log.WithError(err).Warn("Position source unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "position source unavailable"})
		default:
			log.WithError(err).Error("Failed to start monitoring")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, ModelToStateResponse(state))
}

// @Summary Stop monitoring
// @Description Close the position watch and reset the current speed. No-op when idle. Requires API key.
// @Tags Monitoring
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} MonitoringStateResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /monitoring/stop [post]
func (h *Handler) stopMonitoring(c *gin.Context) {
	log := h.logger.WithField("method", "stopMonitoring")

	state, err := h.monitoringService.Stop(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to stop monitoring")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ModelToStateResponse(state))
}

// @Summary Get monitoring state
// @Description Current speed, last position, distance to the nearest speed bump. Requires API key.
// @Tags Monitoring
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} MonitoringStateResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /monitoring/state [get]
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, ModelToStateResponse(h.monitoringService.State()))
}

// @Summary List speed bumps
// @Description Detected speed bumps, most recent first. Requires API key.
// @Tags SpeedBumps
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} SpeedBumpResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /speed-bumps [get]
func (h *Handler) listSpeedBumps(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsToSpeedBumpResponses(h.monitoringService.Bumps()))
}

// @Summary Clear history
// @Description Delete speed bumps detected within the clear window and empty the local collection. Requires API key.
// @Tags SpeedBumps
// @Security ApiKeyAuth
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /speed-bumps [delete]
func (h *Handler) clearHistory(c *gin.Context) {
	log := h.logger.WithField("method", "clearHistory")

	if err := h.monitoringService.ClearHistory(c.Request.Context()); err != nil {
		log.WithError(err).Error("Failed to clear history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Ingest a position
// @Description Position fix from the browser client, delivered to the web geolocation backend. Requires API key.
// @Tags Positions
// @Accept json
// @Security ApiKeyAuth
// @Param position body PositionRequest true "Position fix"
// @Success 202 "Accepted"
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "No active watch"
// @Router /positions [post]
func (h *Handler) ingestPosition(c *gin.Context) {
	var input PositionRequest
	log := h.logger.WithField("method", "ingestPosition")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.positions.Deliver(DTOToPositionSample(input)); err != nil {
		h.writeSinkError(c, log, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary Ingest a geolocation error
// @Description Geolocation error from the browser client. Code 1 permission denied, 2 position unavailable, 3 timeout. Requires API key.
// @Tags Positions
// @Accept json
// @Security ApiKeyAuth
// @Param error body PositionErrorRequest true "Geolocation error"
// @Success 202 "Accepted"
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "No active watch"
// @Router /positions/errors [post]
func (h *Handler) ingestPositionError(c *gin.Context) {
	var input PositionErrorRequest
	log := h.logger.WithField("method", "ingestPositionError")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.positions.Fail(geolocation.ErrorCode(input.Code), input.Message); err != nil {
		h.writeSinkError(c, log, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) writeSinkError(c *gin.Context, log *logrus.Entry, err error) {
	if errors.Is(err, geolocation.ErrNoActiveWatch) {
		log.Debug("Position dropped, no active watch")
		c.JSON(http.StatusConflict, gin.H{"error": "monitoring is not active"})
		return
	}
	log.WithError(err).Warn("Position rejected")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// @Summary Get application health status
// @Description Health of the application and its dependencies
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(status, resp)
}
