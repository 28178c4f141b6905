package v1

import "github.com/shenikar/speedbump_logger/internal/models"

// DTOToPositionSample преобразует DTO позиции в доменную модель
func DTOToPositionSample(dto PositionRequest) *models.PositionSample {
	return &models.PositionSample{
		Latitude:  *dto.Latitude,
		Longitude: *dto.Longitude,
		Speed:     dto.Speed,
		Accuracy:  dto.Accuracy,
		Timestamp: dto.Timestamp,
	}
}

// ModelToStateResponse преобразует снимок состояния в DTO для ответа
func ModelToStateResponse(state models.MonitoringState) *MonitoringStateResponse {
	resp := &MonitoringStateResponse{
		IsMonitoring:      state.IsMonitoring,
		CurrentSpeed:      state.CurrentSpeed,
		DistanceToNearest: state.DistanceToNearest,
		BumpCount:         state.BumpCount,
		Backend:           state.Backend,
		LastError:         state.LastError,
	}
	if p := state.LastPosition; p != nil {
		resp.LastPosition = &PositionResponse{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Speed:     p.Speed,
			Accuracy:  p.Accuracy,
			Timestamp: p.Timestamp,
		}
	}
	return resp
}

// ModelToSpeedBumpResponse преобразует доменную модель в DTO для ответа
func ModelToSpeedBumpResponse(model *models.SpeedBump) *SpeedBumpResponse {
	return &SpeedBumpResponse{
		ID:         model.ID,
		Latitude:   model.Latitude,
		Longitude:  model.Longitude,
		Speed:      model.Speed,
		DetectedAt: model.DetectedAt,
		CreatedAt:  model.CreatedAt,
		Accuracy:   model.Accuracy,
	}
}

// ModelsToSpeedBumpResponses преобразует слайс моделей в слайс DTO
func ModelsToSpeedBumpResponses(models []*models.SpeedBump) []*SpeedBumpResponse {
	responses := make([]*SpeedBumpResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToSpeedBumpResponse(model)
	}
	return responses
}
