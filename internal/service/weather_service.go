package service

import (
	"context"

	"github.com/fakhrymubarak/dioramacast/internal/model"
	"github.com/fakhrymubarak/dioramacast/internal/repository"
)

// WeatherServiceInterface defines the interface for weather service operations
type WeatherServiceInterface interface {
	GetWeather(ctx context.Context, coord model.Coordinate) (*model.WeatherReport, error)
}

// WeatherService handles weather business logic
type WeatherService struct {
	WeatherRepo repository.WeatherRepository
}

// NewWeatherService creates a new weather service instance
func NewWeatherService(repo repository.WeatherRepository) *WeatherService {
	return &WeatherService{WeatherRepo: repo}
}

// GetWeather retrieves the normalized report for a validated coordinate.
func (s *WeatherService) GetWeather(ctx context.Context, coord model.Coordinate) (*model.WeatherReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.WeatherRepo.FetchWeather(ctx, coord)
}
