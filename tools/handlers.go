package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/olgasafonova/toolcall-mcp-server/internal/chat"
	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
	"github.com/olgasafonova/toolcall-mcp-server/internal/messenger"
	"github.com/olgasafonova/toolcall-mcp-server/internal/weather"
	"github.com/olgasafonova/toolcall-mcp-server/metrics"
	"github.com/olgasafonova/toolcall-mcp-server/toolserver"
	"github.com/olgasafonova/toolcall-mcp-server/tracing"
)

// HandlerRegistry binds tool specs to the services that implement them.
type HandlerRegistry struct {
	weather   *weather.Service
	chat      *chat.Service
	messenger *messenger.Messenger
	logger    *slog.Logger
}

func NewHandlerRegistry(w *weather.Service, c *chat.Service, m *messenger.Messenger, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		weather:   w,
		chat:      c,
		messenger: m,
		logger:    logger,
	}
}

// RegisterAll registers every tool on both transports. Either may be nil.
func (h *HandlerRegistry) RegisterAll(httpServer *toolserver.Server, mcpServer *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(httpServer, mcpServer, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

func (h *HandlerRegistry) registerByName(httpServer *toolserver.Server, mcpServer *mcp.Server, spec ToolSpec) bool {
	switch spec.Method {
	case "GetWeather":
		return register(h, httpServer, mcpServer, spec, h.weather.GetWeather)
	case "Chat":
		return register(h, httpServer, mcpServer, spec, h.chat.Chat)
	case "SendMessage":
		return register(h, httpServer, mcpServer, spec, h.messenger.Send)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
}

func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

func register[Args, Result any](
	h *HandlerRegistry,
	httpServer *toolserver.Server,
	mcpServer *mcp.Server,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) bool {
	call := instrument(h, spec, method)

	if mcpServer != nil {
		mcp.AddTool(mcpServer, h.buildTool(spec), func(ctx context.Context, _ *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, Result, error) {
			result, err := call(ctx, args)
			if err != nil {
				var zero Result
				return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
			}
			return nil, result, nil
		})
	}

	if httpServer != nil {
		err := httpServer.RegisterTool(toolserver.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
			Execute: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args Args
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, apperrors.NewValidationError("params", "", err.Error())
				}
				return call(ctx, args)
			},
		})
		if err != nil {
			h.logger.Error("HTTP registration failed", "tool", spec.Name, "error", err)
			return false
		}
	}
	return true
}

// instrument wraps method with a span, metrics, panic recovery and a log line.
func instrument[Args, Result any](h *HandlerRegistry, spec ToolSpec, method func(context.Context, Args) (Result, error)) func(context.Context, Args) (Result, error) {
	return func(ctx context.Context, args Args) (result Result, err error) {
		ctx, span := tracing.StartSpan(ctx, "tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				metrics.PanicsRecovered.WithLabelValues(spec.Name).Inc()
				h.logger.Error("Panic recovered",
					"tool", spec.Name,
					"panic", rec,
					"stack", string(debug.Stack()))
				var zero Result
				result, err = zero, fmt.Errorf("internal error in %s: %v", spec.Name, rec)
			}

			duration := time.Since(start).Seconds()
			span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))
			metrics.RecordRequest(spec.Name, duration, err == nil)

			if err != nil {
				tracing.RecordError(span, err)
				return
			}
			span.SetStatus(codes.Ok, "")
			h.logExecution(spec, args, result)
		}()

		return method(ctx, args)
	}
}

func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	switch a := args.(type) {
	case weather.GetWeatherArgs:
		attrs = append(attrs, "location", a.Location)
	case chat.ChatArgs:
		attrs = append(attrs, "sender", a.Sender, "message_len", len(a.Message))
	case messenger.SendMessageArgs:
		attrs = append(attrs, "to", a.To)
	}

	switch r := result.(type) {
	case weather.Data:
		attrs = append(attrs, "resolved_location", r.Location, "condition", r.Condition)
	case chat.ChatMessage:
		attrs = append(attrs, "model", r.Model, "history_length", r.HistoryLength)
	case messenger.SendMessageResult:
		attrs = append(attrs, "message_id", r.ID)
	}

	h.logger.Info("Tool executed", attrs...)
}
