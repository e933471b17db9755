package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olgasafonova/toolcall-mcp-server/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	defer rl.Close()

	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if rl.rate != 10 {
		t.Errorf("rate = %d, want 10", rl.rate)
	}
	if rl.interval != time.Minute {
		t.Errorf("interval = %v, want %v", rl.interval, time.Minute)
	}
	if rl.stopCh == nil {
		t.Error("stopCh should be initialized")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	defer rl.Close()

	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		if !rl.Allow(ip) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if rl.Allow(ip) {
		t.Error("4th request should be denied")
	}
}

func TestRateLimiterMultipleIPs(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	defer rl.Close()

	ip1 := "192.168.1.1"
	ip2 := "192.168.1.2"

	for i := 0; i < 2; i++ {
		if !rl.Allow(ip1) {
			t.Errorf("Request %d for ip1 should be allowed", i+1)
		}
		if !rl.Allow(ip2) {
			t.Errorf("Request %d for ip2 should be allowed", i+1)
		}
	}

	if rl.Allow(ip1) {
		t.Error("ip1 should be rate limited")
	}
	if rl.Allow(ip2) {
		t.Error("ip2 should be rate limited")
	}
}

func TestRateLimiterClose(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)

	rl.Close()
	rl.Close()
	rl.Close()
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Close()

	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ip := "192.168.1.1"
	if !rl.Allow(ip) {
		t.Error("First request should be allowed")
	}
	if rl.Allow(ip) {
		t.Error("Immediate second request should be denied")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow(ip) {
		t.Error("Request after refill should be allowed")
	}
	if rl.Allow(ip) {
		t.Error("Refill should cap at the bucket size")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(5, time.Second)
	defer rl.Close()

	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(2 * time.Second)
	rl.Allow("10.0.0.2")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.buckets["10.0.0.1"]; ok {
		t.Error("idle bucket should be swept")
	}
	if _, ok := rl.buckets["10.0.0.2"]; !ok {
		t.Error("active bucket should be kept")
	}
}

func TestRecoverPanic(t *testing.T) {
	called := false
	func() {
		defer recoverPanic(quietLogger(), "test operation", func() { called = true })
		panic("test panic")
	}()

	if !called {
		t.Error("onPanic was not called")
	}
}

type mockHandler struct {
	called bool
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	w.WriteHeader(http.StatusOK)
}

func TestSecurityMiddlewareBasic(t *testing.T) {
	handler := &mockHandler{}
	sm := NewSecurityMiddleware(handler, quietLogger(), SecurityConfig{MaxBodySize: 1000})
	defer sm.Close()

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()

	sm.ServeHTTP(w, req)

	if !handler.called {
		t.Error("Handler should have been called")
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request ID")
	}
}

func TestSecurityMiddlewareKeepsRequestID(t *testing.T) {
	var seen string
	sm := NewSecurityMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}), quietLogger(), SecurityConfig{})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	sm.ServeHTTP(w, req)

	if seen != "abc-123" || w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request ID = %q / %q, want abc-123", seen, w.Header().Get(RequestIDHeader))
	}
}

func TestSecurityMiddlewareWithRateLimit(t *testing.T) {
	handler := &mockHandler{}
	sm := NewSecurityMiddleware(handler, quietLogger(), SecurityConfig{
		RateLimit:   2,
		MaxBodySize: 1000,
	})
	defer sm.Close()

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	for i := 0; i < 2; i++ {
		handler.called = false
		w := httptest.NewRecorder()
		sm.ServeHTTP(w, req)
		if !handler.called {
			t.Errorf("Request %d should have been allowed", i+1)
		}
	}

	handler.called = false
	w := httptest.NewRecorder()
	sm.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
	if handler.called {
		t.Error("Handler should not run when rate limited")
	}
	if !strings.Contains(w.Body.String(), "Rate limit exceeded") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSecurityMiddlewareBodyTooLarge(t *testing.T) {
	handler := &mockHandler{}
	sm := NewSecurityMiddleware(handler, quietLogger(), SecurityConfig{MaxBodySize: 10})

	req := httptest.NewRequest("POST", "/tools/call", strings.NewReader(strings.Repeat("x", 100)))
	w := httptest.NewRecorder()
	sm.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
	if handler.called {
		t.Error("Handler should not run for oversized bodies")
	}
}

func TestSecurityMiddlewareRecoversPanic(t *testing.T) {
	sm := NewSecurityMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), quietLogger(), SecurityConfig{})

	w := httptest.NewRecorder()
	sm.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestSecurityMiddlewareWrapSharesLimiter(t *testing.T) {
	sm := NewSecurityMiddleware(nil, quietLogger(), SecurityConfig{RateLimit: 1})
	defer sm.Close()

	a := sm.Wrap(&mockHandler{})
	b := sm.Wrap(&mockHandler{})

	req := httptest.NewRequest("GET", "/", nil)
	a.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 from shared limiter", w.Code)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Transport:        config.TransportHTTP,
		WeatherProvider:  config.WeatherStatic,
		ChatProvider:     config.ChatEcho,
		ChatHistoryLimit: 10,
		MaxBodySize:      1 << 20,
	}
}

func TestNewApp_ServesTools(t *testing.T) {
	a, err := newApp(testConfig(), quietLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/tools/call", "application/json",
		strings.NewReader(`{"tool":"getWeather","params":{"location":"Tokyo"}}`))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request ID")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["location"] != "Tokyo" || body["condition"] != "Rainy" {
		t.Errorf("body = %v", body)
	}
}

func TestNewApp_Metrics(t *testing.T) {
	a, err := newApp(testConfig(), quietLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "toolcall_mcp_") {
		t.Errorf("status = %d, metrics missing namespace", resp.StatusCode)
	}
}

func TestNewApp_UnknownProviders(t *testing.T) {
	cfg := testConfig()
	cfg.WeatherProvider = "carrier-pigeon"
	if _, err := newApp(cfg, quietLogger()); err == nil {
		t.Error("expected error for unknown weather provider")
	}

	cfg = testConfig()
	cfg.ChatProvider = "oracle"
	if _, err := newApp(cfg, quietLogger()); err == nil {
		t.Error("expected error for unknown chat provider")
	}
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{config.ChatOpenAI, "openai"},
		{config.ChatAnthropic, "anthropic"},
		{config.ChatEcho, "echo"},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.ChatProvider = tt.provider
		cfg.OpenAIAPIKey = "sk-test"
		cfg.AnthropicAPIKey = "sk-ant-test"

		c, err := newLLMClient(cfg)
		if err != nil {
			t.Fatalf("newLLMClient(%s): %v", tt.provider, err)
		}
		if c.Name() != tt.want {
			t.Errorf("Name() = %q, want %q", c.Name(), tt.want)
		}
	}
}

func TestServeHTTP_Shutdown(t *testing.T) {
	a, err := newApp(testConfig(), quietLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serveHTTP(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveHTTP: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP did not return after cancel")
	}
}

func TestNewApp_ChunkedBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodySize = 64
	a, err := newApp(cfg, quietLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	body := `{"tool":"chat","params":{"message":"` + strings.Repeat("x", 200) + `","sender":"alice"}}`
	req := httptest.NewRequest(http.MethodPost, "/tools/call", strings.NewReader(body))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "Request body too large" {
		t.Errorf("error = %q", resp["error"])
	}
}
