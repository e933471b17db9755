// Command benchmark measures tool call latency against a running server:
// a cold and a warm getWeather lookup, then a burst of concurrent calls.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/olgasafonova/toolcall-mcp-server/client"
	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
)

var cli struct {
	Server      string `help:"Tool server base URL" default:"http://localhost:3000"`
	Location    string `help:"City for the weather probes" default:"London"`
	Requests    int    `help:"Calls in the concurrent burst" default:"50"`
	Concurrency int    `help:"Calls in flight at once" default:"10"`
}

func main() {
	_ = kong.Parse(&cli, kong.Description("Measure tool call latency."))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := client.New(cli.Server, base.WithLogger(logger), base.WithMaxConcurrent(cli.Concurrency))
	defer c.Close()

	ctx := context.Background()

	fmt.Println("Tool Call Server - Latency Probe")
	fmt.Println("================================")
	fmt.Println()

	if err := measureCache(ctx, c); err != nil {
		fmt.Printf("   Error: %v\n", err)
		os.Exit(1)
	}
	measureBurst(ctx, c)
}

// measureCache compares the first lookup (upstream) with a repeat (server cache).
func measureCache(ctx context.Context, c *client.Client) error {
	fmt.Println("1. getWeather cache:")

	start := time.Now()
	if _, err := c.GetWeather(ctx, cli.Location); err != nil {
		return err
	}
	first := time.Since(start)
	fmt.Printf("   First call:   %v\n", first)

	start = time.Now()
	if _, err := c.GetWeather(ctx, cli.Location); err != nil {
		return err
	}
	second := time.Since(start)
	fmt.Printf("   Second call:  %v\n", second)
	fmt.Printf("   Speedup: %.1fx\n", float64(first)/float64(max(second, time.Microsecond)))
	fmt.Println()
	return nil
}

func measureBurst(ctx context.Context, c *client.Client) {
	fmt.Printf("2. Burst of %d calls, %d at a time:\n", cli.Requests, cli.Concurrency)

	var (
		mu        sync.Mutex
		latencies []time.Duration
		failures  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cli.Concurrency)

	start := time.Now()
	for i := 0; i < cli.Requests; i++ {
		g.Go(func() error {
			t := time.Now()
			var err error
			if i%2 == 0 {
				_, err = c.GetWeather(gctx, cli.Location)
			} else {
				_, err = c.Chat(gctx, fmt.Sprintf("ping %d", i), "benchmark")
			}
			d := time.Since(t)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return nil
			}
			latencies = append(latencies, d)
			return nil
		})
	}
	_ = g.Wait()
	total := time.Since(start)

	fmt.Printf("   Wall time:  %v\n", total)
	fmt.Printf("   Failures:   %d\n", failures)
	if len(latencies) == 0 {
		return
	}
	slices.Sort(latencies)
	fmt.Printf("   p50:        %v\n", percentile(latencies, 0.50))
	fmt.Printf("   p95:        %v\n", percentile(latencies, 0.95))
	fmt.Printf("   max:        %v\n", latencies[len(latencies)-1])
	fmt.Printf("   Throughput: %.1f calls/s\n", float64(len(latencies))/total.Seconds())
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
