package llm

import (
	"context"
	"time"

	"github.com/olgasafonova/toolcall-mcp-server/metrics"
	"github.com/olgasafonova/toolcall-mcp-server/tracing"
)

type instrumented struct {
	next Client
}

// Instrumented wraps c with a span and Prometheus request metrics.
func Instrumented(c Client) Client {
	return &instrumented{next: c}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Chat(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracing.StartSpan(ctx, "llm.chat")
	defer span.End()
	tracing.AddLLMAttributes(span, i.next.Name(), req.Model)

	start := time.Now()
	resp, err := i.next.Chat(ctx, req)
	metrics.RecordLLMCall(i.next.Name(), time.Since(start).Seconds(), err == nil)
	tracing.RecordError(span, err)

	return resp, err
}
