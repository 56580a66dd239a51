package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/repository"
	"github.com/fakhrymubarak/dioramacast/internal/service"
	"github.com/fakhrymubarak/dioramacast/internal/validator"
)

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
	logger         *zap.SugaredLogger
}

func NewWeatherHandler(svc service.WeatherServiceInterface, logger *zap.SugaredLogger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &WeatherHandler{WeatherService: svc, logger: logger}
}

// HandleWeather serves GET /api/weather?lat=..&lon=..
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	query := r.URL.Query()
	coord, err := validator.ValidateCoordinate(query.Get("lat"), query.Get("lon"))
	if err != nil {
		rejectInvalid(w, h.logger, "weather", err)
		return
	}

	// Upstream calls run to completion or timeout even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	report, err := h.WeatherService.GetWeather(ctx, coord)
	if err != nil {
		status, msg := weatherFailure(err)
		h.logger.Errorw("weather request failed", "lat", coord.Latitude, "lon", coord.Longitude, "status", status, "error", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func weatherFailure(err error) (int, string) {
	var httpErr *repository.UpstreamHTTPError
	switch {
	case errors.Is(err, repository.ErrCredentialMissing):
		return http.StatusInternalServerError, "Weather API key not configured"
	case errors.Is(err, repository.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "Weather service timeout, please try again"
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, fmt.Sprintf("Weather service error: %d", httpErr.Status)
	case errors.Is(err, repository.ErrUpstreamUnreachable), errors.Is(err, repository.ErrMalformedUpstream):
		return http.StatusInternalServerError, "Failed to fetch weather data, please try again"
	default:
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}
