package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/cache"
	"github.com/fakhrymubarak/dioramacast/internal/model"
)

const readinessPingTimeout = 2 * time.Second

// HealthHandler serves /health, /ready and /metrics.
type HealthHandler struct {
	WeatherConfigured bool
	ImageConfigured   bool
	RedisConfigured   bool
	Store             cache.Store
	Now               func() time.Time
	logger            *zap.SugaredLogger
}

func NewHealthHandler(weatherConfigured, imageConfigured, redisConfigured bool, store cache.Store, logger *zap.SugaredLogger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &HealthHandler{
		WeatherConfigured: weatherConfigured,
		ImageConfigured:   imageConfigured,
		RedisConfigured:   redisConfigured,
		Store:             store,
		Now:               time.Now,
		logger:            logger,
	}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, model.HealthStatus{Status: "healthy", Timestamp: timestamp(h.Now)})
}

func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	checks := model.ReadinessChecks{
		WeatherAPI: h.WeatherConfigured,
		ImageAPI:   h.ImageConfigured,
		Cache:      h.pingStore(r.Context()),
	}
	status, code := "ready", http.StatusOK
	if !checks.All() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, model.ReadinessStatus{Status: status, Checks: checks, Timestamp: timestamp(h.Now)})
}

func (h *HealthHandler) pingStore(ctx context.Context) bool {
	if h.Store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, readinessPingTimeout)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		h.logger.Warnw("cache not ready", "type", h.Store.Type(), "error", err)
		return false
	}
	return true
}

func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	cacheType := cache.TypeMemory
	if h.Store != nil {
		cacheType = h.Store.Type()
	}
	writeJSON(w, http.StatusOK, model.MetricsSnapshot{
		CacheType:       cacheType,
		RedisConfigured: h.RedisConfigured,
		Timestamp:       timestamp(h.Now),
	})
}
