// Command toolcall-host prints a weather report for a list of cities using
// a running tool server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/olgasafonova/toolcall-mcp-server/client"
	"github.com/olgasafonova/toolcall-mcp-server/host"
	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
)

var cli struct {
	Server    string   `help:"Tool server base URL" default:"http://localhost:3000"`
	Locations []string `help:"Cities to report on (default: New York, London, Tokyo, Sydney, Paris)"`
}

func main() {
	_ = kong.Parse(&cli, kong.Description("Print a weather report."))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	c := client.New(cli.Server, base.WithLogger(logger))
	defer c.Close()

	locations := cli.Locations
	if len(locations) == 0 {
		locations = host.DefaultReportLocations
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := host.New(c, logger).RunWeatherReport(ctx, locations, os.Stdout); err != nil {
		logger.Error("Report failed", "error", err)
		os.Exit(1)
	}
}
