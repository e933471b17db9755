// Package llm defines a provider-neutral chat completion client and
// offline and instrumented implementations of it.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one chat completion call. Empty Model, Temperature or
// MaxTokens fall back to the client's configured options.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Content string
	Model   string
}

// Client sends a conversation to a model and returns its reply.
type Client interface {
	Chat(ctx context.Context, req Request) (Response, error)
	Name() string
}

// LastUserMessage returns the content of the last user message, or "".
func LastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
