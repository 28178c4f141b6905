package models

// MonitoringState - снимок состояния мониторинга для отображения
type MonitoringState struct {
	IsMonitoring      bool            `json:"is_monitoring"`
	CurrentSpeed      float64         `json:"current_speed"`
	LastPosition      *PositionSample `json:"last_position,omitempty"`
	DistanceToNearest *float64        `json:"distance_to_nearest,omitempty"`
	BumpCount         int             `json:"bump_count"`
	Backend           string          `json:"backend"`
	LastError         string          `json:"last_error,omitempty"`
}
