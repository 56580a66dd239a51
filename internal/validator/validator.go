// Package validator checks inbound request parameters before any upstream call.
package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fakhrymubarak/dioramacast/internal/model"
)

// Kind distinguishes validation failures in logs. Every kind maps to HTTP 400.
type Kind string

const (
	MissingParameter Kind = "missing_parameter"
	MalformedValue   Kind = "malformed_value"
	OutOfRange       Kind = "out_of_range"
	FieldTooLong     Kind = "field_too_long"
	WrongType        Kind = "wrong_type"
	MalformedBody    Kind = "malformed_body"
)

const (
	MaxTextLength = 100

	DefaultLocation    = "unknown location"
	DefaultWeather     = "clear sky"
	DefaultTemperature = 20.0
)

// Error is returned by every validation function.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
}

// ValidateCoordinate parses raw lat/lon query values.
func ValidateCoordinate(latRaw, lonRaw string) (model.Coordinate, error) {
	if strings.TrimSpace(latRaw) == "" || strings.TrimSpace(lonRaw) == "" {
		return model.Coordinate{}, &Error{Kind: MissingParameter, Message: "Latitude and longitude required"}
	}

	lat, err := parseFinite(latRaw)
	if err != nil {
		return model.Coordinate{}, &Error{Kind: MalformedValue, Field: "lat", Message: "Invalid latitude or longitude values"}
	}
	lon, err := parseFinite(lonRaw)
	if err != nil {
		return model.Coordinate{}, &Error{Kind: MalformedValue, Field: "lon", Message: "Invalid latitude or longitude values"}
	}

	if lat < -90 || lat > 90 {
		return model.Coordinate{}, &Error{Kind: OutOfRange, Field: "lat", Message: "Invalid latitude or longitude values"}
	}
	if lon < -180 || lon > 180 {
		return model.Coordinate{}, &Error{Kind: OutOfRange, Field: "lon", Message: "Invalid latitude or longitude values"}
	}
	return model.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ValidateImageRequest decodes a JSON object body. Absent fields take defaults;
// only present-but-invalid values are rejected.
func ValidateImageRequest(body []byte) (model.ImageRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return model.ImageRequest{}, &Error{Kind: MalformedBody, Message: "Invalid JSON data"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return model.ImageRequest{}, &Error{Kind: MalformedBody, Message: "Invalid JSON data"}
	}
	if len(fields) == 0 {
		return model.ImageRequest{}, &Error{Kind: MalformedBody, Message: "No data provided"}
	}

	req := model.ImageRequest{
		Location:    DefaultLocation,
		Weather:     DefaultWeather,
		Temperature: DefaultTemperature,
		Settings:    map[string]any{},
	}

	var err error
	if raw, ok := fields["location"]; ok {
		if req.Location, err = textField("location", raw); err != nil {
			return model.ImageRequest{}, err
		}
	}
	if raw, ok := fields["weather"]; ok {
		if req.Weather, err = textField("weather", raw); err != nil {
			return model.ImageRequest{}, err
		}
	}
	if raw, ok := fields["temperature"]; ok {
		if req.Temperature, err = temperatureField(raw); err != nil {
			return model.ImageRequest{}, err
		}
	}
	if raw, ok := fields["settings"]; ok {
		var settings map[string]any
		if json.Unmarshal(raw, &settings) == nil && settings != nil {
			req.Settings = settings
		}
	}
	return req, nil
}

func textField(name string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", &Error{Kind: WrongType, Field: name, Message: "Invalid " + name + " parameter"}
	}
	if utf8.RuneCountInString(s) > MaxTextLength {
		return "", &Error{Kind: FieldTooLong, Field: name, Message: "Invalid " + name + " parameter"}
	}
	return s, nil
}

func temperatureField(raw json.RawMessage) (float64, error) {
	malformed := &Error{Kind: MalformedValue, Field: "temperature", Message: "Invalid temperature parameter"}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, malformed
	}

	var temp float64
	switch t := v.(type) {
	case float64:
		temp = t
	case string:
		parsed, err := parseFinite(t)
		if err != nil {
			return 0, malformed
		}
		temp = parsed
	default:
		return 0, malformed
	}

	if temp < -100 || temp > 100 {
		return 0, &Error{Kind: OutOfRange, Field: "temperature", Message: "Invalid temperature parameter"}
	}
	return temp, nil
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("value is not finite")
	}
	return v, nil
}
