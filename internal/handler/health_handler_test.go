package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakhrymubarak/dioramacast/internal/cache"
	"github.com/fakhrymubarak/dioramacast/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) }

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler(false, false, false, nil, nil)
	h.Now = fixedNow

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","timestamp":"2025-06-01T09:30:00Z"}`, rec.Body.String())
}

func TestHealthHandler_Ready(t *testing.T) {
	mem := cache.NewMemoryStore(time.Minute, time.Minute)

	tests := []struct {
		name    string
		weather bool
		image   bool
		store   cache.Store
		code    int
		status  string
	}{
		{"All configured", true, true, mem, http.StatusOK, "ready"},
		{"Missing image key", true, false, mem, http.StatusServiceUnavailable, "not_ready"},
		{"No store", true, true, nil, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.weather, tt.image, false, tt.store, nil)
			rec := httptest.NewRecorder()
			h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body model.ReadinessStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.weather, body.Checks.WeatherAPI)
			assert.Equal(t, tt.image, body.Checks.ImageAPI)
		})
	}
}

func TestHealthHandler_ReadyRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient("redis://" + mr.Addr())
	require.NoError(t, err)
	store := cache.NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })

	h := NewHealthHandler(true, true, true, store, nil)
	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()
	rec = httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache":false`)
}

func TestHealthHandler_Metrics(t *testing.T) {
	h := NewHealthHandler(true, true, false, cache.NewMemoryStore(time.Minute, time.Minute), nil)
	h.Now = fixedNow

	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cache_type":"simple","redis_configured":false,"timestamp":"2025-06-01T09:30:00Z"}`, rec.Body.String())
}
