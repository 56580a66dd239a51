package model

// Coordinate is a validated latitude/longitude pair.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// WeatherReport is the normalized weather payload returned by /api/weather.
type WeatherReport struct {
	Location    string  `json:"location"`
	Country     string  `json:"country"`
	Temperature int     `json:"temperature"`
	FeelsLike   int     `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
	Pressure    int     `json:"pressure"`
}
