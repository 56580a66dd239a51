// Package server wires configuration, stores, adapters and routes into one
// http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/cache"
	"github.com/fakhrymubarak/dioramacast/internal/config"
	"github.com/fakhrymubarak/dioramacast/internal/handler"
	"github.com/fakhrymubarak/dioramacast/internal/httpclient"
	"github.com/fakhrymubarak/dioramacast/internal/imagegen"
	"github.com/fakhrymubarak/dioramacast/internal/middleware"
	"github.com/fakhrymubarak/dioramacast/internal/repository"
	"github.com/fakhrymubarak/dioramacast/internal/service"
)

// Server owns every long-lived resource of the gateway.
type Server struct {
	HTTP    *http.Server
	Handler http.Handler
	Store   cache.Store

	cfg    *config.Config
	pool   *httpclient.Pool
	redis  *redisv9.Client
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

type routeLimits struct {
	def, weather, image, metrics []middleware.Limit
}

// New builds the server. It does not start listening.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*Server, error) {
	limits, err := parseRouteLimits(cfg.RateLimiter)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Server{cfg: cfg, cancel: cancel, logger: logger}

	if cfg.Cache.RedisConfigured() {
		s.redis, err = cache.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			cancel()
			return nil, err
		}
		s.Store = cache.NewRedisStore(s.redis)
		logger.Infow("using redis cache", "cache_type", cache.TypeRedis)
	} else {
		s.Store = cache.NewMemoryStore(cfg.Cache.Timeout, 2*cfg.Cache.Timeout)
		logger.Infow("REDIS_URL not set, using in-process cache", "cache_type", cache.TypeMemory)
	}

	var limiter middleware.Limiter
	if cfg.RateLimiter.Enabled {
		if s.redis != nil {
			limiter = middleware.NewRedisLimiter(s.redis, cfg.Cache.KeyPrefix)
		} else {
			mem := middleware.NewMemoryLimiter(cfg.RateLimiter.CleanupTimeout)
			mem.StartCleanup(ctx)
			limiter = mem
		}
	}

	s.pool = httpclient.New(cfg.HTTPClient, logger)

	if cfg.Weather.APIKey == "" {
		logger.Warn("weather API key not configured")
	}
	weatherRepo := repository.NewWeatherRepository(cfg.Weather, s.pool.Client(cfg.Weather.Timeout), logger)
	weatherSvc := service.NewWeatherService(weatherRepo)

	provider, err := imagegen.New(ctx, cfg.Image, s.pool.Client(cfg.Image.Timeout))
	switch {
	case errors.Is(err, imagegen.ErrCredentialMissing):
		logger.Warn("image API key not configured, image generation returns a placeholder")
	case err != nil:
		s.Close()
		return nil, fmt.Errorf("build image provider: %w", err)
	default:
		logger.Infow("image provider configured", "provider", provider.Name())
	}
	imageSvc := service.NewImageService(provider, cfg.Image.Timeout, time.Now, logger)

	health := handler.NewHealthHandler(cfg.Weather.APIKey != "", imageSvc.Configured(), cfg.Cache.RedisConfigured(), s.Store, logger)
	weather := handler.NewWeatherHandler(weatherSvc, logger)
	image := handler.NewImageHandler(imageSvc, logger)

	rl := func(class string, l []middleware.Limit) middleware.Middleware {
		return middleware.RateLimit(limiter, class, l, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", health.HandleHealth)
	mux.HandleFunc("/ready", health.HandleReady)
	mux.Handle("/metrics", rl("metrics", limits.metrics)(http.HandlerFunc(health.HandleMetrics)))
	mux.Handle("/api/weather", middleware.Chain(http.HandlerFunc(weather.HandleWeather),
		rl("weather", limits.weather),
		middleware.ResponseCache(s.Store, cfg.Cache.KeyPrefix, cfg.Cache.Timeout, logger),
	))
	mux.Handle("/api/generate-image", rl("image", limits.image)(http.HandlerFunc(image.HandleGenerateImage)))
	mux.Handle("/", rl("default", limits.def)(http.HandlerFunc(handler.NotFound)))

	s.Handler = middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders,
		middleware.CORS(cfg.CORS.AllowedOrigins, "/api/"),
	)
	s.HTTP = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.Handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger.Desugar()),
	}
	return s, nil
}

func parseRouteLimits(cfg config.RateLimiterConfig) (routeLimits, error) {
	var (
		out routeLimits
		err error
	)
	for _, item := range []struct {
		name string
		expr string
		dst  *[]middleware.Limit
	}{
		{"default", cfg.Default, &out.def},
		{"weather", cfg.Weather, &out.weather},
		{"image", cfg.Image, &out.image},
		{"metrics", cfg.Metrics, &out.metrics},
	} {
		if *item.dst, err = middleware.ParseLimits(item.expr); err != nil {
			return routeLimits{}, fmt.Errorf("rate_limiter.%s: %w", item.name, err)
		}
	}
	return out, nil
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Infow("DioramaCast listening", "addr", s.HTTP.Addr, "debug", s.cfg.Debug)
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases every resource.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTP.Shutdown(ctx)
	s.Close()
	return err
}

// Close releases background workers, pooled connections and the cache store.
func (s *Server) Close() {
	s.cancel()
	if s.pool != nil {
		s.pool.Close()
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.logger.Warnw("closing cache store", "error", err)
		}
	}
}
