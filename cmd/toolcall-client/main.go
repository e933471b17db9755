// Command toolcall-client fetches weather for a few cities from a running
// tool server and prints the raw results.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/olgasafonova/toolcall-mcp-server/client"
	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
)

var cli struct {
	Server    string        `help:"Tool server base URL" default:"http://localhost:3000"`
	Locations []string      `help:"Cities to look up" default:"New York,London,Tokyo"`
	Timeout   time.Duration `help:"Per-request timeout" default:"10s"`
	Verbose   bool          `short:"v" help:"Log each tool call"`
}

func main() {
	_ = kong.Parse(&cli, kong.Description("Call getWeather on a tool server."))

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	c := client.New(cli.Server, base.WithLogger(logger), base.WithTimeout(cli.Timeout))
	defer c.Close()

	ctx := context.Background()
	failed := false
	for i, loc := range cli.Locations {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Getting weather for %s...\n", loc)
		d, err := c.GetWeather(ctx, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s Weather: %+v\n", loc, *d)
	}
	if failed {
		os.Exit(1)
	}
}
