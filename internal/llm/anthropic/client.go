// Package anthropic implements llm.Client on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/olgasafonova/toolcall-mcp-server/internal/llm"
)

const DefaultModel = "claude-3-5-haiku-latest"

type Client struct {
	options llm.Options
	client  *anthropic.Client
}

func NewClient(opts ...llm.Option) *Client {
	options := llm.NewOptions(opts...)
	if options.Model == "" {
		options.Model = DefaultModel
	}

	reqOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.APIKey),
	}
	if options.BaseURL != "" {
		reqOpts = append(reqOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		reqOpts = append(reqOpts, anthropicopt.WithHTTPClient(options.HTTPClient))
	}

	client := anthropic.NewClient(reqOpts...)

	return &Client{
		options: options,
		client:  &client,
	}
}

func (c *Client) Name() string { return "anthropic" }

// Chat sends the conversation. The Messages API has no system role inside
// the message list, so any system turns are folded into the system prompt.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	req = c.options.Resolve(req)

	system := req.System
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = strings.TrimSpace(system + "\n" + m.Content)
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	rsp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return llm.Response{}, errors.New("no response from Anthropic")
	}

	return llm.Response{
		Content: result,
		Model:   string(rsp.Model),
	}, nil
}
