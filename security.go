package main

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olgasafonova/toolcall-mcp-server/metrics"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// recoverPanic logs a recovered panic with its stack and calls onPanic.
// It must be deferred directly.
func recoverPanic(logger *slog.Logger, operation string, onPanic func()) {
	if r := recover(); r != nil {
		metrics.PanicsRecovered.WithLabelValues(operation).Inc()
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
		if onPanic != nil {
			onPanic()
		}
	}
}

type bucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter is a per-IP token bucket: each IP gets rate tokens per
// interval, with bursts up to rate.
type RateLimiter struct {
	mu       sync.Mutex
	rate     int
	interval time.Duration
	buckets  map[string]*bucket
	now      func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter and its idle-bucket sweeper.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		rate:     rate,
		interval: interval,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow takes a token for ip if one is available.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: float64(rl.rate), last: now}
		rl.buckets[ip] = b
	} else {
		refill := now.Sub(b.last).Seconds() / rl.interval.Seconds() * float64(rl.rate)
		b.tokens = min(b.tokens+refill, float64(rl.rate))
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Close stops the sweeper. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(max(rl.interval, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops buckets that have refilled completely.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, b := range rl.buckets {
		if now.Sub(b.last) >= rl.interval {
			delete(rl.buckets, ip)
		}
	}
}

// SecurityConfig configures SecurityMiddleware.
type SecurityConfig struct {
	RateLimit   int   // requests per minute per IP, 0 disables
	MaxBodySize int64 // bytes, 0 disables
}

// SecurityMiddleware tags requests with an ID, limits body size and request
// rate, and turns handler panics into 500s.
type SecurityMiddleware struct {
	next    http.Handler
	logger  *slog.Logger
	config  SecurityConfig
	limiter *RateLimiter
}

// NewSecurityMiddleware wraps next. Call Close to stop the rate limiter.
func NewSecurityMiddleware(next http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	sm := &SecurityMiddleware{next: next, logger: logger, config: config}
	if config.RateLimit > 0 {
		sm.limiter = NewRateLimiter(config.RateLimit, time.Minute)
	}
	return sm
}

// Wrap returns a middleware around next that shares this one's limiter.
func (sm *SecurityMiddleware) Wrap(next http.Handler) http.Handler {
	c := *sm
	c.next = next
	return &c
}

// Close stops the rate limiter, if any.
func (sm *SecurityMiddleware) Close() {
	if sm.limiter != nil {
		sm.limiter.Close()
	}
}

func (sm *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		r.Header.Set(RequestIDHeader, id)
	}
	w.Header().Set(RequestIDHeader, id)
	logger := sm.logger.With("request_id", id)

	defer recoverPanic(logger, "http", func() {
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	})

	if sm.limiter != nil && !sm.limiter.Allow(clientIP(r)) {
		metrics.RateLimitRejections.Inc()
		logger.Warn("Rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
		w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
		writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	if sm.config.MaxBodySize > 0 {
		if r.ContentLength > sm.config.MaxBodySize {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, sm.config.MaxBodySize)
	}

	sm.next.ServeHTTP(w, r)
}

// clientIP uses the connection address only; forwarded headers are not
// trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
