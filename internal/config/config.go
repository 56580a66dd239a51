package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is built once at startup and passed to every component that needs it.
type Config struct {
	Server      ServerConfig
	Debug       bool
	LogLevel    string
	Weather     WeatherConfig
	Image       ImageConfig
	Cache       CacheConfig
	CORS        CORSConfig
	HTTPClient  HTTPClientConfig
	RateLimiter RateLimiterConfig
}

type ServerConfig struct {
	Port              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

type WeatherConfig struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

type ImageConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

type CacheConfig struct {
	RedisURL  string
	Timeout   time.Duration
	KeyPrefix string
}

// RedisConfigured reports whether a shared Redis backend was configured.
func (c CacheConfig) RedisConfigured() bool {
	return c.RedisURL != ""
}

type CORSConfig struct {
	AllowedOrigins []string
}

type HTTPClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxRetries          int
	RetryBackoff        time.Duration
}

// RateLimiterConfig holds limit expressions such as "10/hour;2/minute".
type RateLimiterConfig struct {
	Enabled        bool
	Default        string
	Weather        string
	Image          string
	Metrics        string
	CleanupTimeout time.Duration
}

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.read_header_timeout", "15s")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "130s")
	v.SetDefault("server.idle_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "20s")

	v.SetDefault("app.debug", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.api_url", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.timeout", "10s")

	v.SetDefault("image.provider", "gemini")
	v.SetDefault("image.api_key", "")
	v.SetDefault("image.model", "")
	v.SetDefault("image.base_url", "")
	v.SetDefault("image.timeout", "60s")

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.timeout", "5m")
	v.SetDefault("cache.key_prefix", "dioramacast_")

	v.SetDefault("cors.allowed_origins", "*")

	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 100)
	v.SetDefault("http_client.max_retries", 3)
	v.SetDefault("http_client.retry_backoff", "100ms")

	v.SetDefault("rate_limiter.enabled", true)
	v.SetDefault("rate_limiter.default", "200/hour;50/minute")
	v.SetDefault("rate_limiter.weather", "30/minute")
	v.SetDefault("rate_limiter.image", "10/hour;2/minute")
	v.SetDefault("rate_limiter.metrics", "10/minute")
	v.SetDefault("rate_limiter.cleanup_timeout", "3m")
}

func bindEnv(v *viper.Viper) {
	bindings := map[string][]string{
		"server.port":          {"PORT"},
		"app.debug":            {"DEBUG", "FLASK_DEBUG"},
		"log.level":            {"LOG_LEVEL"},
		"weather.api_key":      {"OPENWEATHER_API_KEY", "OPENWEATHERMAP_API_KEY"},
		"weather.api_url":      {"WEATHER_API_URL"},
		"image.provider":       {"IMAGE_PROVIDER"},
		"image.api_key":        {"IMAGE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"},
		"image.model":          {"IMAGE_MODEL"},
		"image.base_url":       {"IMAGE_API_BASE_URL"},
		"cache.redis_url":      {"REDIS_URL"},
		"cors.allowed_origins": {"ALLOWED_ORIGINS"},
		"rate_limiter.enabled": {"RATE_LIMIT_ENABLED"},
	}
	for key, envs := range bindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// readConfigFiles merges config.yaml (and config_test.yaml under go test) from the
// project root. Missing files are not an error.
func readConfigFiles(v *viper.Viper) error {
	root, err := getProjectRoot()
	if err != nil {
		return nil
	}
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	names := []string{"config"}
	if isTestRun() {
		names = append(names, "config_test")
	}
	for _, name := range names {
		v.SetConfigName(name)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return fmt.Errorf("read %s.yaml: %w", name, err)
		}
	}
	return nil
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// Load reads .env, config files and environment variables into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	if err := readConfigFiles(v); err != nil {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	p := durationParser{v: v}
	cfg := &Config{
		Server: ServerConfig{
			Port:              v.GetString("server.port"),
			ReadHeaderTimeout: p.get("server.read_header_timeout"),
			ReadTimeout:       p.get("server.read_timeout"),
			WriteTimeout:      p.get("server.write_timeout"),
			IdleTimeout:       p.get("server.idle_timeout"),
			ShutdownTimeout:   p.get("server.shutdown_timeout"),
		},
		Debug:    v.GetBool("app.debug"),
		LogLevel: v.GetString("log.level"),
		Weather: WeatherConfig{
			APIKey:  strings.TrimSpace(v.GetString("weather.api_key")),
			APIURL:  v.GetString("weather.api_url"),
			Timeout: p.get("weather.timeout"),
		},
		Image: ImageConfig{
			Provider: strings.ToLower(strings.TrimSpace(v.GetString("image.provider"))),
			APIKey:   strings.TrimSpace(v.GetString("image.api_key")),
			Model:    v.GetString("image.model"),
			BaseURL:  v.GetString("image.base_url"),
			Timeout:  p.get("image.timeout"),
		},
		Cache: CacheConfig{
			RedisURL:  strings.TrimSpace(v.GetString("cache.redis_url")),
			Timeout:   p.get("cache.timeout"),
			KeyPrefix: v.GetString("cache.key_prefix"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
		},
		HTTPClient: HTTPClientConfig{
			MaxIdleConns:        v.GetInt("http_client.max_idle_conns"),
			MaxIdleConnsPerHost: v.GetInt("http_client.max_idle_conns_per_host"),
			MaxRetries:          v.GetInt("http_client.max_retries"),
			RetryBackoff:        p.get("http_client.retry_backoff"),
		},
		RateLimiter: RateLimiterConfig{
			Enabled:        v.GetBool("rate_limiter.enabled"),
			Default:        v.GetString("rate_limiter.default"),
			Weather:        v.GetString("rate_limiter.weather"),
			Image:          v.GetString("rate_limiter.image"),
			Metrics:        v.GetString("rate_limiter.metrics"),
			CleanupTimeout: p.get("rate_limiter.cleanup_timeout"),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// durationParser keeps the first parse failure so fromViper stays linear.
type durationParser struct {
	v   *viper.Viper
	err error
}

func (p *durationParser) get(key string) time.Duration {
	raw := strings.TrimSpace(p.v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("config %s: invalid duration %q: %w", key, raw, err)
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
