package model

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadinessChecks struct {
	WeatherAPI bool `json:"weather_api"`
	ImageAPI   bool `json:"image_api"`
	Cache      bool `json:"cache"`
}

// All reports whether every dependency check passed.
func (c ReadinessChecks) All() bool {
	return c.WeatherAPI && c.ImageAPI && c.Cache
}

type ReadinessStatus struct {
	Status    string          `json:"status"`
	Checks    ReadinessChecks `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

type MetricsSnapshot struct {
	CacheType       string `json:"cache_type"`
	RedisConfigured bool   `json:"redis_configured"`
	Timestamp       string `json:"timestamp"`
}
