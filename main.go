// Tool-calling server: exposes getWeather, chat and send-message over a JSON
// POST endpoint and over MCP (stdio or streamable HTTP).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
	"github.com/olgasafonova/toolcall-mcp-server/internal/chat"
	"github.com/olgasafonova/toolcall-mcp-server/internal/config"
	"github.com/olgasafonova/toolcall-mcp-server/internal/llm"
	"github.com/olgasafonova/toolcall-mcp-server/internal/llm/anthropic"
	"github.com/olgasafonova/toolcall-mcp-server/internal/llm/openai"
	"github.com/olgasafonova/toolcall-mcp-server/internal/messenger"
	"github.com/olgasafonova/toolcall-mcp-server/internal/weather"
	"github.com/olgasafonova/toolcall-mcp-server/tools"
	"github.com/olgasafonova/toolcall-mcp-server/toolserver"
	"github.com/olgasafonova/toolcall-mcp-server/tracing"
)

const (
	ServerName    = "toolcall-mcp-server"
	ServerVersion = "1.0.0"
)

const shutdownTimeout = 10 * time.Second

const instructions = `Tool-calling demo server.

Available tools:
- getWeather: Current conditions for a city
- chat: Send a chat message and get a reply; history is kept per sender
- send-message: Queue a mock outbound message

Configure via environment variables:
- WEATHER_PROVIDER: open-meteo (default) or static
- CHAT_PROVIDER: openai, anthropic or echo (detected from API keys by default)
- OPENAI_API_KEY / ANTHROPIC_API_KEY: provider credentials`

var cli struct {
	Port      int    `help:"Port for the HTTP tool endpoint (overrides TOOLCALL_PORT)" default:"0"`
	Transport string `help:"http or stdio (overrides TOOLCALL_TRANSPORT)" default:""`
}

func main() {
	_ = kong.Parse(&cli,
		kong.Name(ServerName),
		kong.Description("Serve weather, chat and messaging tools over HTTP and MCP."))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Override(cli.Port, cli.Transport); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	// stdout belongs to the MCP stdio transport
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("Starting tool server",
		"name", ServerName,
		"version", ServerVersion,
		"transport", cfg.Transport,
		"weather_provider", a.weather.ProviderName(),
		"chat_provider", cfg.ChatProvider,
	)

	switch cfg.Transport {
	case config.TransportStdio:
		return a.mcp.Run(ctx, &mcp.StdioTransport{})
	default:
		return a.serveHTTP(ctx)
	}
}

// app holds everything one server process wires together.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	weather  *weather.Service
	chat     *chat.Service
	outbox   *messenger.Messenger
	mcp      *mcp.Server
	http     *toolserver.Server
	security *SecurityMiddleware
	closers  []func()
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	provider, err := a.newWeatherProvider()
	if err != nil {
		return nil, err
	}
	a.weather = weather.NewService(provider, logger)

	client, err := newLLMClient(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.chat = chat.NewService(llm.Instrumented(client),
		chat.WithHistory(chat.NewHistory(cfg.ChatHistoryLimit)),
		chat.WithSystemPrompt(cfg.ChatSystemPrompt),
		chat.WithLogger(logger),
	)
	a.outbox = messenger.New(messenger.DefaultOutboxSize, logger)

	a.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})

	a.security = NewSecurityMiddleware(nil, logger, SecurityConfig{
		RateLimit:   cfg.RateLimit,
		MaxBodySize: cfg.MaxBodySize,
	})
	a.http = toolserver.New(cfg.Port,
		toolserver.WithLogger(logger),
		toolserver.WithMiddleware(a.security.Wrap),
	)
	a.http.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return a.mcp
	}, nil))
	a.http.Handle("/metrics", promhttp.Handler())

	tools.NewHandlerRegistry(a.weather, a.chat, a.outbox, logger).RegisterAll(a.http, a.mcp)
	return a, nil
}

func (a *app) newWeatherProvider() (weather.Provider, error) {
	switch a.cfg.WeatherProvider {
	case config.WeatherStatic:
		return weather.NewStaticProvider(), nil
	case config.WeatherOpenMeteo:
		c := base.NewClient(
			base.WithLogger(a.logger),
			base.WithTimeout(a.cfg.WeatherTimeout),
			base.WithService("open-meteo"),
		)
		a.closers = append(a.closers, c.Close)
		return weather.NewOpenMeteoProvider(c, weather.WithCacheTTL(a.cfg.WeatherCacheTTL)), nil
	}
	return nil, fmt.Errorf("unknown weather provider %q", a.cfg.WeatherProvider)
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.ChatProvider {
	case config.ChatOpenAI:
		return openai.NewClient(
			llm.WithAPIKey(cfg.OpenAIAPIKey),
			llm.WithModel(cfg.ChatModel),
			llm.WithBaseURL(cfg.OpenAIBaseURL),
		), nil
	case config.ChatAnthropic:
		return anthropic.NewClient(
			llm.WithAPIKey(cfg.AnthropicAPIKey),
			llm.WithModel(cfg.ChatModel),
			llm.WithBaseURL(cfg.AnthropicBaseURL),
		), nil
	case config.ChatEcho:
		return llm.NewEchoClient(), nil
	}
	return nil, fmt.Errorf("unknown chat provider %q", cfg.ChatProvider)
}

// Handler returns the full HTTP surface: the tool endpoints plus /mcp and
// /metrics.
func (a *app) Handler() http.Handler {
	return a.http.Handler()
}

func (a *app) serveHTTP(ctx context.Context) error {
	if err := a.http.Start(); err != nil {
		return err
	}
	logger := a.logger.With("addr", a.http.Addr())
	logger.Info("Endpoints ready",
		"tools", "/tools/call",
		"mcp", "/mcp",
		"metrics", "/metrics",
	)

	<-ctx.Done()
	logger.Info("Shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.http.Stop(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases upstream clients and the rate limiter.
func (a *app) Close() {
	for _, c := range a.closers {
		c()
	}
	if a.security != nil {
		a.security.Close()
	}
}
