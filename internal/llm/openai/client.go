// Package openai implements llm.Client on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/olgasafonova/toolcall-mcp-server/internal/llm"
)

const DefaultModel = openai.GPT4oMini

type Client struct {
	options llm.Options
	client  *openai.Client
}

func NewClient(opts ...llm.Option) *Client {
	options := llm.NewOptions(opts...)
	if options.Model == "" {
		options.Model = DefaultModel
	}

	config := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		config.BaseURL = options.BaseURL
	}
	if options.HTTPClient != nil {
		config.HTTPClient = options.HTTPClient
	}

	return &Client{
		options: options,
		client:  openai.NewClientWithConfig(config),
	}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	req = c.options.Resolve(req)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    roleFor(m.Role),
			Content: m.Content,
		})
	}

	rsp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return llm.Response{}, errors.New("no response from OpenAI")
	}

	return llm.Response{
		Content: rsp.Choices[0].Message.Content,
		Model:   rsp.Model,
	}, nil
}

func roleFor(role string) string {
	switch role {
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
