package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
)

const (
	GeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	ForecastURL  = "https://api.open-meteo.com/v1/forecast"

	DefaultCacheTTL = 10 * time.Minute

	// Place coordinates do not move, so geocoding results live longer.
	geocodeTTL = 24 * time.Hour
)

// OpenMeteoProvider resolves a place name with the Open-Meteo geocoding API
// and reads current conditions from the forecast API. No API key is needed.
type OpenMeteoProvider struct {
	*base.Client

	geocodingURL string
	forecastURL  string
	ttl          time.Duration
}

type OpenMeteoOption func(*OpenMeteoProvider)

// WithEndpoints overrides the geocoding and forecast URLs.
func WithEndpoints(geocoding, forecast string) OpenMeteoOption {
	return func(p *OpenMeteoProvider) {
		p.geocodingURL = geocoding
		p.forecastURL = forecast
	}
}

// WithCacheTTL sets how long current conditions are cached.
func WithCacheTTL(ttl time.Duration) OpenMeteoOption {
	return func(p *OpenMeteoProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

func NewOpenMeteoProvider(client *base.Client, opts ...OpenMeteoOption) *OpenMeteoProvider {
	p := &OpenMeteoProvider{
		Client:       client,
		geocodingURL: GeocodingURL,
		forecastURL:  ForecastURL,
		ttl:          DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenMeteoProvider) Name() string { return "open-meteo" }

type place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodingResponse struct {
	Results []place `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
		IsDay       int     `json:"is_day"`
	} `json:"current"`
}

// Current returns conditions for location. Results are cached and
// concurrent lookups of the same place share one upstream call.
func (p *OpenMeteoProvider) Current(ctx context.Context, location string) (*Data, error) {
	key := strings.ToLower(strings.TrimSpace(location))

	return base.CachedJSON(ctx, p.Client, "current:"+key, p.ttl, func(ctx context.Context) (*Data, error) {
		pl, err := p.geocode(ctx, location)
		if err != nil {
			return nil, err
		}
		return p.forecast(ctx, pl)
	})
}

func (p *OpenMeteoProvider) geocode(ctx context.Context, location string) (place, error) {
	key := "geo:" + strings.ToLower(strings.TrimSpace(location))

	return base.CachedJSON(ctx, p.Client, key, geocodeTTL, func(ctx context.Context) (place, error) {
		params := url.Values{}
		params.Set("name", location)
		params.Set("count", "1")
		params.Set("language", "en")
		params.Set("format", "json")

		var resp geocodingResponse
		err := p.GetJSON(ctx, base.RequestConfig{
			URL:    p.geocodingURL + "?" + params.Encode(),
			Action: "geocode",
		}, &resp)
		if err != nil {
			return place{}, fmt.Errorf("geocoding %q: %w", location, err)
		}
		if len(resp.Results) == 0 {
			return place{}, apperrors.NewNotFoundError("location", location)
		}
		return resp.Results[0], nil
	})
}

func (p *OpenMeteoProvider) forecast(ctx context.Context, pl place) (*Data, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(pl.Latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(pl.Longitude, 'f', 4, 64))
	params.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,is_day")
	params.Set("wind_speed_unit", "kmh")

	var resp forecastResponse
	err := p.GetJSON(ctx, base.RequestConfig{
		URL:    p.forecastURL + "?" + params.Encode(),
		Action: "forecast",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", pl.Name, err)
	}

	c := resp.Current
	return &Data{
		Location:    pl.Name,
		Temperature: round1(c.Temperature),
		Condition:   ConditionForCode(c.WeatherCode, c.IsDay == 1),
		Humidity:    int(math.Round(c.Humidity)),
		WindSpeed:   round1(c.WindSpeed),
	}, nil
}

// ConditionForCode maps a WMO weather interpretation code to a short label.
func ConditionForCode(code int, isDay bool) string {
	switch {
	case code == 0 || code == 1:
		if isDay {
			return "Sunny"
		}
		return "Clear"
	case code == 2 || code == 3:
		return "Cloudy"
	case code == 45 || code == 48:
		return "Foggy"
	case code >= 51 && code <= 67, code >= 80 && code <= 82:
		return "Rainy"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "Snowy"
	case code >= 95 && code <= 99:
		return "Stormy"
	default:
		return "Cloudy"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
