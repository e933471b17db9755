// Package messenger implements the send-message tool. Delivery is simulated:
// messages are logged and kept in a bounded in-memory outbox.
package messenger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
	"github.com/olgasafonova/toolcall-mcp-server/metrics"
)

const DefaultOutboxSize = 100

type SendMessageArgs struct {
	To      string `json:"to" jsonschema:"Recipient of the message"`
	Content string `json:"content" jsonschema:"Message body"`
}

type SendMessageResult struct {
	ID        string `json:"id"`
	Delivered bool   `json:"delivered"`
	To        string `json:"to"`
	Content   string `json:"content"`
	Text      string `json:"text"`
	SentAt    string `json:"sentAt"`
}

type Messenger struct {
	mu     sync.Mutex
	outbox []SendMessageResult
	size   int
	logger *slog.Logger
	now    func() time.Time
}

// New creates a messenger whose outbox keeps the last size messages.
func New(size int, logger *slog.Logger) *Messenger {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{size: size, logger: logger, now: time.Now}
}

func (m *Messenger) Send(ctx context.Context, args SendMessageArgs) (SendMessageResult, error) {
	if err := ctx.Err(); err != nil {
		return SendMessageResult{}, err
	}

	to := strings.TrimSpace(args.To)
	if to == "" {
		return SendMessageResult{}, apperrors.NewValidationError("to", args.To, "is required")
	}
	if strings.TrimSpace(args.Content) == "" {
		return SendMessageResult{}, apperrors.NewValidationError("content", "", "is required")
	}

	res := SendMessageResult{
		ID:        uuid.NewString(),
		Delivered: true,
		To:        to,
		Content:   args.Content,
		Text:      fmt.Sprintf("Message sent to %s: %s", to, args.Content),
		SentAt:    m.now().UTC().Format(time.RFC3339),
	}

	m.logger.Info("[MOCK] sending message", "id", res.ID, "to", to, "content_len", len(args.Content))

	m.mu.Lock()
	m.outbox = append(m.outbox, res)
	if over := len(m.outbox) - m.size; over > 0 {
		m.outbox = append([]SendMessageResult(nil), m.outbox[over:]...)
	}
	m.mu.Unlock()

	metrics.MessagesSent.Inc()
	return res, nil
}

// Outbox returns a copy of the retained messages, oldest first.
func (m *Messenger) Outbox() []SendMessageResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendMessageResult, len(m.outbox))
	copy(out, m.outbox)
	return out
}
