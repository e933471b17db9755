// Package weather implements the getWeather tool: provider backends,
// location extraction from chat text and report formatting.
package weather

import "context"

// DefaultLocation is used when chat text mentions weather without a place.
const DefaultLocation = "New York"

// GetWeatherArgs are the getWeather tool parameters.
type GetWeatherArgs struct {
	Location string `json:"location" jsonschema:"City or place name, e.g. London"`
}

// Data is the current weather for one location. Temperature is in °C and
// wind speed in km/h.
type Data struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
}

// Provider looks up current conditions for a location.
type Provider interface {
	Current(ctx context.Context, location string) (*Data, error)
	Name() string
}
