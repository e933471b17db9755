package host

import (
	"errors"
	"regexp"
	"strings"

	"github.com/olgasafonova/toolcall-mcp-server/internal/weather"
)

var sendPattern = regexp.MustCompile(`(?i)\bsend\s+(?:a\s+)?message\s+to\s+([^\s:,]+)[:,]?\s+(?:saying\s+)?(.+)`)

// ErrEmptyInput is returned by SelectTool for blank input.
var ErrEmptyInput = errors.New("empty input")

// Router maps free text onto a tool call using the same rules as the chat
// session. It needs no model and serves as the baseline tool selector.
type Router struct{}

// SelectTool picks getWeather for weather questions, send-message for
// "send a message to X saying Y", and chat for everything else.
func (Router) SelectTool(input string) (string, map[string]any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil, ErrEmptyInput
	}
	if weather.MentionsWeather(input) {
		return "getWeather", map[string]any{"location": weather.LocationOrDefault(input)}, nil
	}
	if m := sendPattern.FindStringSubmatch(input); m != nil {
		return "send-message", map[string]any{"to": m[1], "content": strings.TrimSpace(m[2])}, nil
	}
	return "chat", map[string]any{"message": input}, nil
}
