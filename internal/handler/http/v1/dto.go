package v1

import (
	"time"

	"github.com/google/uuid"
)

// PositionRequest DTO позиции от браузерного клиента
// @Description DTO позиции от браузерного клиента
type PositionRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`    // м/с
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"` // м
	Timestamp int64    `json:"timestamp" validate:"required,gt=0"`            // мс с эпохи
}

// PositionErrorRequest DTO ошибки геолокации от браузерного клиента
// @Description DTO ошибки геолокации от браузерного клиента
type PositionErrorRequest struct {
	Code    int    `json:"code" validate:"required,oneof=1 2 3"`
	Message string `json:"message,omitempty"`
}

// PositionResponse DTO последней позиции
// @Description DTO последней позиции
type PositionResponse struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// MonitoringStateResponse DTO состояния мониторинга
// @Description DTO состояния мониторинга
type MonitoringStateResponse struct {
	IsMonitoring      bool              `json:"is_monitoring"`
	CurrentSpeed      float64           `json:"current_speed"` // км/ч
	LastPosition      *PositionResponse `json:"last_position,omitempty"`
	DistanceToNearest *float64          `json:"distance_to_nearest,omitempty"` // м
	BumpCount         int               `json:"bump_count"`
	Backend           string            `json:"backend"`
	LastError         string            `json:"last_error,omitempty"`
}

// SpeedBumpResponse DTO зафиксированного лежачего полицейского
// @Description DTO зафиксированного лежачего полицейского
type SpeedBumpResponse struct {
	ID         uuid.UUID `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed"` // км/ч
	DetectedAt time.Time `json:"detected_at"`
	CreatedAt  time.Time `json:"created_at"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
}

// HealthResponse DTO состояния зависимостей
// @Description DTO состояния зависимостей
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
