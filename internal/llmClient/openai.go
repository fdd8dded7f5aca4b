package llmclient

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient streams from an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client   *openai.Client
	provider string
	model    string
}

func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	return newOpenAICompatible("OpenAI", apiKey, model, baseURL, DefaultOpenAIModel)
}

func newOpenAICompatible(provider, apiKey, model, baseURL, defaultModel string) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New(strings.ToLower(provider) + ": api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = u
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		provider: provider,
		model:    model,
	}, nil
}

func (o *OpenAIClient) Name() string { return o.provider + ":" + o.model }
func (o *OpenAIClient) Close() error { return nil }

func (o *OpenAIClient) StreamChat(ctx context.Context, s Session, onChunk func(chunk string) error) error {
	if len(s.Messages) == 0 {
		return ErrEmptySession
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(s.Messages)+1)
	if s.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.System})
	}
	for _, m := range s.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onChunk(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
}
