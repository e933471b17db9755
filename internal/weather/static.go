package weather

import (
	"context"
	"strings"

	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
)

// StaticProvider serves a fixed table of cities. It needs no network and
// is used for demos and tests.
type StaticProvider struct {
	table map[string]Data
}

// NewStaticProvider returns a provider with New York, London, Tokyo and Sydney.
func NewStaticProvider() *StaticProvider {
	p := &StaticProvider{table: make(map[string]Data)}
	for _, d := range []Data{
		{Location: "New York", Temperature: 22, Condition: "Sunny", Humidity: 60, WindSpeed: 5},
		{Location: "London", Temperature: 18, Condition: "Cloudy", Humidity: 75, WindSpeed: 8},
		{Location: "Tokyo", Temperature: 26, Condition: "Rainy", Humidity: 80, WindSpeed: 7},
		{Location: "Sydney", Temperature: 30, Condition: "Clear", Humidity: 55, WindSpeed: 10},
	} {
		p.table[strings.ToLower(d.Location)] = d
	}
	return p
}

func (p *StaticProvider) Name() string { return "static" }

// Current looks location up case-insensitively.
func (p *StaticProvider) Current(_ context.Context, location string) (*Data, error) {
	d, ok := p.table[strings.ToLower(strings.TrimSpace(location))]
	if !ok {
		return nil, apperrors.NewNotFoundError("location", location)
	}
	return &d, nil
}
