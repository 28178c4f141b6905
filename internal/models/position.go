package models

import "time"

// PositionSample - одна точка, полученная от источника геолокации.
// Speed и Accuracy могут отсутствовать, тогда считаются нулевыми.
type PositionSample struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`    // м/с
	Accuracy  *float64 `json:"accuracy,omitempty"` // метры
	Timestamp int64    `json:"timestamp"`          // epoch ms
}

// SpeedOrZero возвращает сырую скорость в м/с
func (p *PositionSample) SpeedOrZero() float64 {
	if p.Speed == nil {
		return 0
	}
	return *p.Speed
}

// AccuracyOrZero возвращает точность в метрах
func (p *PositionSample) AccuracyOrZero() float64 {
	if p.Accuracy == nil {
		return 0
	}
	return *p.Accuracy
}

// Time переводит метку времени в time.Time
func (p *PositionSample) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}
