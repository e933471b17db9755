// Package host drives the tool server from the consumer side: a weather
// report runner, a chat session and a text-to-tool router.
package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/olgasafonova/toolcall-mcp-server/internal/chat"
	"github.com/olgasafonova/toolcall-mcp-server/internal/weather"
)

// DefaultReportLocations is the city list of the weather report.
var DefaultReportLocations = []string{"New York", "London", "Tokyo", "Sydney", "Paris"}

// maxPrefetch bounds concurrent lookups during a report.
const maxPrefetch = 4

// WeatherClient fetches current conditions. *client.Client satisfies it.
type WeatherClient interface {
	GetWeather(ctx context.Context, location string) (*weather.Data, error)
}

// ToolClient is the subset of *client.Client a chat session needs.
type ToolClient interface {
	WeatherClient
	Chat(ctx context.Context, message, sender string) (*chat.ChatMessage, error)
}

// Host renders weather lookups for display.
type Host struct {
	client WeatherClient
	logger *slog.Logger
}

// New creates a Host. A nil logger falls back to slog.Default().
func New(c WeatherClient, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{client: c, logger: logger}
}

// DisplayWeather returns a printable report for location, or a one-line
// error message if the lookup fails.
func (h *Host) DisplayWeather(ctx context.Context, location string) string {
	d, err := h.client.GetWeather(ctx, location)
	return h.render(location, d, err)
}

func (h *Host) render(location string, d *weather.Data, err error) string {
	if err != nil {
		h.logger.Debug("Weather lookup failed", "location", location, "error", err)
		return fmt.Sprintf("Error getting weather for %s: %v", location, err)
	}
	return weather.FormatReport(*d)
}

// RunWeatherReport looks up every location and writes the reports to w in
// the order given. Lookups run concurrently; a failed lookup is reported in
// place and does not stop the others.
func (h *Host) RunWeatherReport(ctx context.Context, locations []string, w io.Writer) error {
	reports := make([]string, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPrefetch)
	for i, loc := range locations {
		g.Go(func() error {
			reports[i] = h.DisplayWeather(gctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	if _, err := fmt.Fprintln(w, "=== Weather Report ==="); err != nil {
		return err
	}
	for _, r := range reports {
		if _, err := fmt.Fprintln(w, r); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "=== End of Report ===")
	return err
}
