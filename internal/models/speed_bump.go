package models

import (
	"time"

	"github.com/google/uuid"
)

// SpeedBump - зафиксированный лежачий полицейский. ID и CreatedAt назначает хранилище.
type SpeedBump struct {
	ID         uuid.UUID `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed"` // км/ч
	DetectedAt time.Time `json:"detected_at"`
	CreatedAt  time.Time `json:"created_at"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
}

// Detection - срабатывание детектора, еще не сохраненное в хранилище
type Detection struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedKmh   float64   `json:"speed"`
	DetectedAt time.Time `json:"detected_at"`
	Accuracy   float64   `json:"accuracy"`
}
