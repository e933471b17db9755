// Package config loads server settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"

	WeatherOpenMeteo = "open-meteo"
	WeatherStatic    = "static"

	ChatOpenAI    = "openai"
	ChatAnthropic = "anthropic"
	ChatEcho      = "echo"
)

// Config holds all server settings
type Config struct {
	Port      int
	Transport string

	WeatherProvider string
	WeatherTimeout  time.Duration
	WeatherCacheTTL time.Duration

	// ChatProvider is resolved from the available API keys when CHAT_PROVIDER is unset.
	ChatProvider     string
	ChatModel        string
	ChatSystemPrompt string
	ChatHistoryLimit int

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit   int
	MaxBodySize int64

	LogLevel slog.Level
}

// Load reads configuration from the environment. Every invalid value is
// reported in the returned error.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Transport:        strings.ToLower(getEnvOrDefault("TOOLCALL_TRANSPORT", TransportHTTP)),
		WeatherProvider:  strings.ToLower(getEnvOrDefault("WEATHER_PROVIDER", WeatherOpenMeteo)),
		ChatModel:        os.Getenv("CHAT_MODEL"),
		ChatSystemPrompt: os.Getenv("CHAT_SYSTEM_PROMPT"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
	}

	cfg.Port = intEnv("TOOLCALL_PORT", 3000, &errs)
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("TOOLCALL_PORT must be between 1 and 65535, got %d", cfg.Port))
	}

	if cfg.Transport != TransportHTTP && cfg.Transport != TransportStdio {
		errs = append(errs, fmt.Errorf("TOOLCALL_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportStdio, cfg.Transport))
	}

	if cfg.WeatherProvider != WeatherOpenMeteo && cfg.WeatherProvider != WeatherStatic {
		errs = append(errs, fmt.Errorf("WEATHER_PROVIDER must be %q or %q, got %q", WeatherOpenMeteo, WeatherStatic, cfg.WeatherProvider))
	}
	cfg.WeatherTimeout = durationEnv("WEATHER_TIMEOUT", 10*time.Second, &errs)
	cfg.WeatherCacheTTL = durationEnv("WEATHER_CACHE_TTL", 10*time.Minute, &errs)

	cfg.ChatProvider = strings.ToLower(os.Getenv("CHAT_PROVIDER"))
	switch cfg.ChatProvider {
	case "", "auto":
		cfg.ChatProvider = cfg.detectChatProvider()
	case ChatOpenAI:
		if cfg.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("CHAT_PROVIDER=openai requires OPENAI_API_KEY"))
		}
	case ChatAnthropic:
		if cfg.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("CHAT_PROVIDER=anthropic requires ANTHROPIC_API_KEY"))
		}
	case ChatEcho:
	default:
		errs = append(errs, fmt.Errorf("CHAT_PROVIDER must be one of openai, anthropic, echo, got %q", cfg.ChatProvider))
	}

	cfg.ChatHistoryLimit = intEnv("CHAT_HISTORY_LIMIT", 10, &errs)
	if cfg.ChatHistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("CHAT_HISTORY_LIMIT must be positive, got %d", cfg.ChatHistoryLimit))
	}

	cfg.RateLimit = intEnv("RATE_LIMIT", 0, &errs)
	if cfg.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must not be negative, got %d", cfg.RateLimit))
	}

	cfg.MaxBodySize = int64(intEnv("MAX_BODY_SIZE", 1<<20, &errs))
	if cfg.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_SIZE must be positive, got %d", cfg.MaxBodySize))
	}

	level, err := ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) detectChatProvider() string {
	switch {
	case c.OpenAIAPIKey != "":
		return ChatOpenAI
	case c.AnthropicAPIKey != "":
		return ChatAnthropic
	default:
		return ChatEcho
	}
}

// Override applies command-line values on top of the environment and checks
// them the same way Load does. Zero values leave a setting unchanged.
func (c *Config) Override(port int, transport string) error {
	var errs []error
	if port != 0 {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("--port must be between 1 and 65535, got %d", port))
		} else {
			c.Port = port
		}
	}
	if transport != "" {
		t := strings.ToLower(transport)
		if t != TransportHTTP && t != TransportStdio {
			errs = append(errs, fmt.Errorf("--transport must be %q or %q, got %q", TransportHTTP, TransportStdio, transport))
		} else {
			c.Transport = t
		}
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

func intEnv(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration like 10s, got %q", key, v))
		return def
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
