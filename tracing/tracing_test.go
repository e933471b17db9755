package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "")

	cfg := DefaultConfig()

	if cfg.ServiceName != "toolcall-mcp-server" {
		t.Errorf("ServiceName = %q, want toolcall-mcp-server", cfg.ServiceName)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.Enabled {
		t.Error("expected tracing disabled by default")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %f, want 1.0", cfg.SampleRate)
	}
}

func TestDefaultConfig_WithEnvVars(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantEnabled bool
		wantRate    float64
	}{
		{
			name:        "explicit enable",
			env:         map[string]string{"OTEL_ENABLED": "true"},
			wantEnabled: true,
			wantRate:    1.0,
		},
		{
			name:        "enabled by endpoint",
			env:         map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4318"},
			wantEnabled: true,
			wantRate:    1.0,
		},
		{
			name:        "sample rate",
			env:         map[string]string{"OTEL_ENABLED": "true", "OTEL_TRACES_SAMPLER_ARG": "0.25"},
			wantEnabled: true,
			wantRate:    0.25,
		},
		{
			name:        "bad sample rate falls back",
			env:         map[string]string{"OTEL_TRACES_SAMPLER_ARG": "lots"},
			wantEnabled: false,
			wantRate:    1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_TRACES_SAMPLER_ARG"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			if cfg.Enabled != tt.wantEnabled {
				t.Errorf("Enabled = %v, want %v", cfg.Enabled, tt.wantEnabled)
			}
			if cfg.SampleRate != tt.wantRate {
				t.Errorf("SampleRate = %v, want %v", cfg.SampleRate, tt.wantRate)
			}
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown returned error: %v", err)
	}
}

func TestSetup_StdoutExporterWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		Enabled:        true,
		Writer:         &buf,
		SampleRate:     1.0,
	}

	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := StartSpan(context.Background(), "tool.getWeather")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("tool.getWeather")) {
		t.Errorf("exported spans missing span name, got %q", buf.String())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{1.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-0.5, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "llm.chat")
	AddLLMAttributes(span, "openai", "gpt-4o-mini")
	AddUpstreamAttributes(span, "openai", "")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d ended spans, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("got %d events, want 1 error event", len(ended[0].Events()))
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_GET_ENV_KEY", "custom-value")
	t.Setenv("TEST_GET_ENV_KEY_EMPTY", "")

	if got := getEnvOrDefault("TEST_GET_ENV_KEY", "d"); got != "custom-value" {
		t.Errorf("got %q, want custom-value", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_EMPTY", "d"); got != "d" {
		t.Errorf("got %q, want d", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_UNSET_XYZ", "d"); got != "d" {
		t.Errorf("got %q, want d", got)
	}
}
