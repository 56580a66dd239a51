package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/config"
	"github.com/fakhrymubarak/dioramacast/internal/model"
)

// Custom error types
var (
	ErrCredentialMissing   = errors.New("weather API key not configured")
	ErrUpstreamTimeout     = errors.New("weather service timeout")
	ErrUpstreamUnreachable = errors.New("weather service unreachable")
	ErrMalformedUpstream   = errors.New("weather service returned malformed payload")
)

// UpstreamHTTPError carries a non-2xx status returned by the weather provider.
type UpstreamHTTPError struct {
	Status int
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("weather service error: %d", e.Status)
}

const (
	defaultLocation = "Unknown"
	defaultIcon     = "01d"
)

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	FetchWeather(ctx context.Context, coord model.Coordinate) (*model.WeatherReport, error)
}

// weatherRepository implements WeatherRepository against OpenWeatherMap
type weatherRepository struct {
	httpClient *http.Client
	apiKey     string
	apiURL     string
	timeout    time.Duration
	logger     *zap.SugaredLogger
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(cfg config.WeatherConfig, httpClient *http.Client, logger *zap.SugaredLogger) WeatherRepository {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &weatherRepository{
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		apiURL:     cfg.APIURL,
		timeout:    timeout,
		logger:     logger,
	}
}

// FetchWeather queries the provider for current conditions at coord.
func (r *weatherRepository) FetchWeather(ctx context.Context, coord model.Coordinate) (*model.WeatherReport, error) {
	if r.apiKey == "" {
		return nil, ErrCredentialMissing
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint, err := r.buildURL(coord)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamHTTPError{Status: resp.StatusCode}
	}

	var data model.OpenWeatherMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpstream, err)
	}

	r.logger.Infow("weather API call completed",
		"lat", coord.Latitude, "lon", coord.Longitude, "elapsed", time.Since(start).String())
	return Normalize(data), nil
}

func (r *weatherRepository) buildURL(coord model.Coordinate) (string, error) {
	u, err := url.Parse(r.apiURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	q.Set("appid", r.apiKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Normalize maps the provider payload onto WeatherReport, defaulting absent fields.
func Normalize(data model.OpenWeatherMapResponse) *model.WeatherReport {
	report := &model.WeatherReport{
		Location:    data.Name,
		Country:     data.Sys.Country,
		Temperature: roundInt(data.Main.Temp),
		FeelsLike:   roundInt(data.Main.FeelsLike),
		Humidity:    roundInt(data.Main.Humidity),
		Icon:        defaultIcon,
		WindSpeed:   math.RoundToEven(data.Wind.Speed),
		Pressure:    roundInt(data.Main.Pressure),
	}
	if report.Location == "" {
		report.Location = defaultLocation
	}
	if len(data.Weather) > 0 {
		report.Description = capitalize(data.Weather[0].Description)
		if data.Weather[0].Icon != "" {
			report.Icon = data.Weather[0].Icon
		}
	}
	return report
}

func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
