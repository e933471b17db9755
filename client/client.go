// Package client calls tools on a running tool server over POST /tools/call.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
	"github.com/olgasafonova/toolcall-mcp-server/internal/chat"
	"github.com/olgasafonova/toolcall-mcp-server/internal/messenger"
	"github.com/olgasafonova/toolcall-mcp-server/internal/weather"
	"github.com/olgasafonova/toolcall-mcp-server/toolserver"
)

// DefaultBaseURL points at a tool server on the default port.
const DefaultBaseURL = "http://localhost:3000"

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Body)
}

// Message extracts the server's error field, falling back to the raw body.
func (e *StatusError) Message() string {
	var resp toolserver.ErrorResponse
	if err := json.Unmarshal([]byte(e.Body), &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return e.Body
}

// Client is a tool server client.
type Client struct {
	*base.Client
	baseURL string
}

// New creates a client for the server at baseURL. Extra options configure
// the underlying HTTP client.
func New(baseURL string, opts ...base.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]base.ClientOption{base.WithService("toolserver")}, opts...)
	return &Client{
		Client:  base.NewClient(opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// CallTool invokes tool with params and decodes the result into out.
// out may be nil when the result is not needed.
func (c *Client) CallTool(ctx context.Context, tool string, params any, out any) error {
	body, err := json.Marshal(struct {
		Tool   string `json:"tool"`
		Params any    `json:"params"`
	}{Tool: tool, Params: params})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	c.Logger.Debug("Calling tool", "tool", tool, "params", params)

	data, status, err := c.DoRequest(ctx, base.RequestConfig{
		Method:      http.MethodPost,
		URL:         c.baseURL + "/tools/call",
		Body:        body,
		ContentType: "application/json",
		Action:      tool,
		MaxRetry:    1,
		PassStatus:  true,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{StatusCode: status, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// GetWeather fetches current conditions for location.
func (c *Client) GetWeather(ctx context.Context, location string) (*weather.Data, error) {
	var d weather.Data
	if err := c.CallTool(ctx, "getWeather", weather.GetWeatherArgs{Location: location}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Chat sends message on behalf of sender.
func (c *Client) Chat(ctx context.Context, message, sender string) (*chat.ChatMessage, error) {
	var m chat.ChatMessage
	if err := c.CallTool(ctx, "chat", chat.ChatArgs{Message: message, Sender: sender}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendMessage queues a mock outbound message.
func (c *Client) SendMessage(ctx context.Context, to, content string) (*messenger.SendMessageResult, error) {
	var r messenger.SendMessageResult
	if err := c.CallTool(ctx, "send-message", messenger.SendMessageArgs{To: to, Content: content}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]toolserver.ToolInfo, error) {
	var tools []toolserver.ToolInfo
	err := c.GetJSON(ctx, base.RequestConfig{
		Method: http.MethodGet,
		URL:    c.baseURL + "/tools",
		Action: "list",
	}, &tools)
	if err != nil {
		return nil, err
	}
	return tools, nil
}
