// Package toolserver serves named tools over HTTP. Clients POST a
// {"tool": ..., "params": ...} envelope to /tools/call and receive the tool
// result or a {"error": ...} body.
package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/xeipuuv/gojsonschema"

	"github.com/olgasafonova/toolcall-mcp-server/metrics"
	"github.com/olgasafonova/toolcall-mcp-server/tracing"
)

// Tool is a named operation callable through the dispatcher.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema for the params object. Nil accepts anything.
	Parameters map[string]any
	Execute    func(ctx context.Context, params json.RawMessage) (any, error)
}

// CallRequest is the request envelope.
type CallRequest struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ToolInfo describes a tool in GET /tools.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type registeredTool struct {
	Tool
	schema *gojsonschema.Schema
}

type Server struct {
	addr   string
	logger *slog.Logger

	mu    sync.RWMutex
	tools map[string]*registeredTool

	router      *mux.Router
	middlewares []func(http.Handler) http.Handler

	httpServer *http.Server
	listener   net.Listener
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMiddleware wraps the whole handler, outside the CORS layer.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mw)
	}
}

// New creates a server that will listen on port. Port 0 picks a free port.
func New(port int, opts ...Option) *Server {
	s := &Server{
		addr:   fmt.Sprintf(":%d", port),
		logger: slog.Default(),
		tools:  make(map[string]*registeredTool),
		router: mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.HandleFunc("/tools/call", s.handleCall).Methods(http.MethodPost)
	s.router.HandleFunc("/tools", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	return s
}

// RegisterTool adds t, replacing any tool with the same name.
func (s *Server) RegisterTool(t Tool) error {
	rt := &registeredTool{Tool: t}
	if t.Parameters != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters))
		if err != nil {
			return fmt.Errorf("invalid parameter schema for tool %q: %w", t.Name, err)
		}
		rt.schema = schema
	}

	s.mu.Lock()
	_, replaced := s.tools[t.Name]
	s.tools[t.Name] = rt
	s.mu.Unlock()

	s.logger.Info("Registered tool", "tool", t.Name, "replaced", replaced)
	return nil
}

// Tools returns the registered tool names, sorted.
func (s *Server) Tools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle mounts h under path prefix, e.g. /mcp or /metrics.
func (s *Server) Handle(prefix string, h http.Handler) {
	s.router.PathPrefix(prefix).Handler(h)
}

// Handler returns the routed handler wrapped in CORS and any middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = cors(instrument(s.router))
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		h = s.middlewares[i](h)
	}
	return h
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Tool server listening",
		"addr", ln.Addr().String(),
		"tools", s.Tools())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Tool server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address after Start, or the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, waiting for in-flight calls until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) lookup(name string) (*registeredTool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	ctx, span := tracing.StartSpan(r.Context(), "toolserver.call")
	defer span.End()
	tracing.AddToolAttributes(span, req.Tool, "http")

	tool, ok := s.lookup(req.Tool)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Tool '%s' not found", req.Tool))
		return
	}

	params := req.Params
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		params = json.RawMessage("{}")
	}

	if tool.schema != nil {
		if msg := validate(tool.schema, params); msg != "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid params for tool '%s': %s", req.Tool, msg))
			return
		}
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		tracing.RecordError(span, err)
		s.logger.Warn("Tool call failed", "tool", req.Tool, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error executing tool '%s': %v", req.Tool, err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, ToolInfo{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  len(s.Tools()),
	})
}

func validate(schema *gojsonschema.Schema, params json.RawMessage) string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(params))
	if err != nil {
		return err.Error()
	}
	if result.Valid() {
		return ""
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cors allows any origin and answers every preflight with 200.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Flush keeps streaming handlers such as /mcp working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func instrument(next *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "other"
		var match mux.RouteMatch
		if next.Match(r, &match) && match.Route != nil {
			if tmpl, err := match.Route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, fmt.Sprint(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
