package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
	"github.com/olgasafonova/toolcall-mcp-server/internal/llm"
)

// recordingClient captures requests and replies with a fixed text.
type recordingClient struct {
	reply    string
	err      error
	requests []llm.Request
}

func (r *recordingClient) Name() string { return "recording" }

func (r *recordingClient) Chat(_ context.Context, req llm.Request) (llm.Response, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return llm.Response{}, r.err
	}
	return llm.Response{Content: r.reply, Model: "test-model"}, nil
}

func TestService_Chat(t *testing.T) {
	client := &recordingClient{reply: "Hi Alice"}
	svc := NewService(client, WithSystemPrompt("be nice"))
	fixed := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	got, err := svc.Chat(context.Background(), ChatArgs{Message: "  hello ", Sender: "Alice"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	want := ChatMessage{
		Message:       "hello",
		Sender:        "Alice",
		Timestamp:     "2026-10-18T09:30:00Z",
		Reply:         "Hi Alice",
		Model:         "test-model",
		HistoryLength: 2,
	}
	if got != want {
		t.Errorf("Chat() = %+v, want %+v", got, want)
	}

	req := client.requests[0]
	if req.System != "be nice" {
		t.Errorf("System = %q", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
		t.Errorf("Messages = %+v", req.Messages)
	}
}

func TestService_Chat_SendsHistory(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	svc := NewService(client)

	for _, m := range []string{"one", "two", "three"} {
		if _, err := svc.Chat(context.Background(), ChatArgs{Message: m, Sender: "bob"}); err != nil {
			t.Fatalf("Chat(%q): %v", m, err)
		}
	}

	last := client.requests[2].Messages
	if len(last) != 5 {
		t.Fatalf("third request carried %d messages, want 5", len(last))
	}
	roles := []string{llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	for i, r := range roles {
		if last[i].Role != r {
			t.Errorf("messages[%d].Role = %q, want %q", i, last[i].Role, r)
		}
	}
}

func TestService_Chat_HistoryBounded(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	svc := NewService(client, WithHistory(NewHistory(10)))

	var last ChatMessage
	for i := 0; i < 8; i++ {
		var err error
		last, err = svc.Chat(context.Background(), ChatArgs{Message: "ping", Sender: "carol"})
		if err != nil {
			t.Fatal(err)
		}
	}

	if last.HistoryLength != 10 {
		t.Errorf("HistoryLength = %d, want 10", last.HistoryLength)
	}
	if n := len(client.requests[7].Messages); n != 11 {
		t.Errorf("prompt length = %d, want 10 history + 1 new", n)
	}
}

func TestService_Chat_Validation(t *testing.T) {
	svc := NewService(&recordingClient{reply: "ok"})

	tests := []struct {
		name  string
		args  ChatArgs
		field string
	}{
		{"empty message", ChatArgs{Sender: "a"}, "message"},
		{"blank message", ChatArgs{Message: "   ", Sender: "a"}, "message"},
		{"empty sender", ChatArgs{Message: "hi"}, "sender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Chat(context.Background(), tt.args)
			var ve *apperrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestService_Chat_LLMErrorKeepsHistory(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	svc := NewService(client)

	if _, err := svc.Chat(context.Background(), ChatArgs{Message: "first", Sender: "dave"}); err != nil {
		t.Fatal(err)
	}

	client.err = errors.New("rate limited")
	_, err := svc.Chat(context.Background(), ChatArgs{Message: "second", Sender: "dave"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error = %v", err)
	}

	if n := len(svc.History().Get("dave")); n != 2 {
		t.Errorf("history length = %d, want 2", n)
	}
}

func TestService_Chat_EchoClient(t *testing.T) {
	svc := NewService(llm.NewEchoClient())

	got, err := svc.Chat(context.Background(), ChatArgs{Message: "hello there", Sender: "User"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `I received your message: "hello there"`; got.Reply != want {
		t.Errorf("Reply = %q, want %q", got.Reply, want)
	}
}
