// Package metrics provides Prometheus metrics for the tool-call server.
// It covers tool calls, upstream API traffic, LLM calls, caching and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "toolcall_mcp"

var (
	// RequestsTotal counts tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of tool calls",
	}, []string{"tool", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Tool call latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})

	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of tool calls currently executing",
	}, []string{"tool"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_hits_total",
		Help:      "Total cache hit count",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_misses_total",
		Help:      "Total cache miss count",
	})

	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "cache_entries",
		Help:      "Current number of cache entries",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_evictions_total",
		Help:      "Total cache eviction count",
	})

	// UpstreamLatency measures upstream API latency by service and action
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "upstream_api_latency_seconds",
		Help:      "Upstream API call latency by service and action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "action"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_api_requests_total",
		Help:      "Total upstream API requests by service, action and status",
	}, []string{"service", "action", "status"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_api_errors_total",
		Help:      "Upstream API errors by service, action and error code",
	}, []string{"service", "action", "error_code"})

	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_api_retries_total",
		Help:      "Upstream API retry count by service",
	}, []string{"service"})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected due to rate limiting",
	})

	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers and HTTP middleware",
	}, []string{"tool"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	// LLMRequestsTotal counts chat completions by provider and status
	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "llm_requests_total",
		Help:      "Total LLM chat requests by provider and status",
	}, []string{"provider", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "LLM chat request latency by provider",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider"})

	ChatHistoryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "chat_history_entries",
		Help:      "Total chat history entries held across all senders",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "messages_sent_total",
		Help:      "Messages accepted by the mock messenger",
	})
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	RequestsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records an upstream API call. errorCode is usually the HTTP status.
func RecordAPICall(service, action string, duration float64, success bool, errorCode string) {
	UpstreamRequestsTotal.WithLabelValues(service, action, statusLabel(success)).Inc()
	UpstreamLatency.WithLabelValues(service, action).Observe(duration)
	if errorCode != "" {
		UpstreamErrors.WithLabelValues(service, action, errorCode).Inc()
	}
}

// RecordLLMCall records one chat completion.
func RecordLLMCall(provider string, duration float64, success bool) {
	LLMRequestsTotal.WithLabelValues(provider, statusLabel(success)).Inc()
	LLMRequestDuration.WithLabelValues(provider).Observe(duration)
}

// RecordCacheAccess records a cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// SetCacheSize updates the current cache size gauge
func SetCacheSize(size int64) {
	CacheSize.Set(float64(size))
}
