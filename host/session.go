package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olgasafonova/toolcall-mcp-server/internal/weather"
)

// Sender names used for entries the session writes itself.
const (
	DefaultUsername      = "User"
	SenderSystem         = "System"
	SenderWeatherService = "Weather Service"
)

// WelcomeMessage opens every chat transcript.
const WelcomeMessage = `Welcome to the MCP Chat Demo! You can ask about the weather by typing "weather in [location]".`

const weatherUnavailable = "Sorry, I couldn't get the weather information."

// Entry is one line of a chat transcript.
type Entry struct {
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds one user's side of a chat: it forwards text to the chat
// tool, adds a weather report when the text asks for one, and keeps the
// transcript.
type Session struct {
	client ToolClient
	now    func() time.Time

	mu         sync.Mutex
	username   string
	transcript []Entry
}

// NewSession creates a session for the default username.
func NewSession(c ToolClient) *Session {
	return &Session{client: c, now: time.Now, username: DefaultUsername}
}

// SetUsername changes the sender name of later messages. A blank name
// restores the default.
func (s *Session) SetUsername(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultUsername
	}
	s.mu.Lock()
	s.username = name
	s.mu.Unlock()
}

// Username returns the current sender name.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Welcome appends and returns the welcome entry.
func (s *Session) Welcome() Entry {
	return s.add(WelcomeMessage, SenderSystem)
}

// Transcript returns a copy of every entry so far.
func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Send posts text and returns the entries it produced, starting with the
// user's own. Blank text produces nothing. Tool failures become entries,
// not errors; the error return is reserved for a canceled context.
func (s *Session) Send(ctx context.Context, text string) ([]Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	user := s.Username()
	out := []Entry{s.add(text, user)}

	reply, err := s.client.Chat(ctx, text, user)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return append(out, s.add(fmt.Sprintf("Error: %v", err), SenderSystem)), nil
	}

	msg := reply.Reply
	if msg == "" {
		msg = `I received your message: "` + text + `"`
	}
	out = append(out, s.add(msg, SenderSystem))

	if !weather.MentionsWeather(text) {
		return out, nil
	}

	d, err := s.client.GetWeather(ctx, weather.LocationOrDefault(text))
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return append(out, s.add(weatherUnavailable, SenderSystem)), nil
	}
	return append(out, s.add(weather.FormatChatMessage(*d), SenderWeatherService)), nil
}

func (s *Session) add(message, sender string) Entry {
	e := Entry{Message: message, Sender: sender, Timestamp: s.now().UTC()}
	s.mu.Lock()
	s.transcript = append(s.transcript, e)
	s.mu.Unlock()
	return e
}
