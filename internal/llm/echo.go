package llm

import "context"

// EchoClient acknowledges the last user message without calling a model.
type EchoClient struct{}

func NewEchoClient() *EchoClient { return &EchoClient{} }

func (EchoClient) Name() string { return "echo" }

func (EchoClient) Chat(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return Response{
		Content: `I received your message: "` + LastUserMessage(req.Messages) + `"`,
		Model:   "echo",
	}, nil
}
