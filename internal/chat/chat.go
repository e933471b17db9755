// Package chat implements the chat tool: a per-sender conversation backed
// by an LLM client with bounded history.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
	"github.com/olgasafonova/toolcall-mcp-server/internal/llm"
)

const DefaultSystemPrompt = "You are a helpful assistant in a small chat demo. " +
	"Keep replies short. A separate weather service answers questions about the weather."

// ChatArgs are the chat tool parameters.
type ChatArgs struct {
	Message string `json:"message" jsonschema:"Text of the chat message"`
	Sender  string `json:"sender" jsonschema:"Name of the person sending the message"`
}

// ChatMessage is the chat tool result.
type ChatMessage struct {
	Message       string `json:"message"`
	Sender        string `json:"sender"`
	Timestamp     string `json:"timestamp"`
	Reply         string `json:"reply"`
	Model         string `json:"model,omitempty"`
	HistoryLength int    `json:"historyLength"`
}

type Service struct {
	client       llm.Client
	history      *History
	systemPrompt string
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		if prompt != "" {
			s.systemPrompt = prompt
		}
	}
}

func WithHistory(h *History) Option {
	return func(s *Service) {
		s.history = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(client llm.Client, opts ...Option) *Service {
	s := &Service{
		client:       client,
		history:      NewHistory(DefaultMaxEntries),
		systemPrompt: DefaultSystemPrompt,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) History() *History {
	return s.history
}

// Chat sends args.Message to the model with the sender's recent history and
// records both sides of the exchange. A failed model call leaves history as it was.
func (s *Service) Chat(ctx context.Context, args ChatArgs) (ChatMessage, error) {
	message := strings.TrimSpace(args.Message)
	sender := strings.TrimSpace(args.Sender)
	if message == "" {
		return ChatMessage{}, apperrors.NewValidationError("message", args.Message, "is required")
	}
	if sender == "" {
		return ChatMessage{}, apperrors.NewValidationError("sender", args.Sender, "is required")
	}

	userMsg := llm.Message{Role: llm.RoleUser, Content: message}
	prompt := append(s.history.Get(sender), userMsg)

	resp, err := s.client.Chat(ctx, llm.Request{
		System:   s.systemPrompt,
		Messages: prompt,
	})
	if err != nil {
		return ChatMessage{}, fmt.Errorf("%s chat failed: %w", s.client.Name(), err)
	}

	n := s.history.Append(sender, userMsg, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

	s.logger.Debug("Chat reply",
		"sender", sender,
		"provider", s.client.Name(),
		"history", n)

	return ChatMessage{
		Message:       message,
		Sender:        sender,
		Timestamp:     s.now().UTC().Format(time.RFC3339),
		Reply:         resp.Content,
		Model:         resp.Model,
		HistoryLength: n,
	}, nil
}
