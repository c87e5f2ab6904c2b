// Package llm implements domain.Generator on top of an OpenAI-compatible
// chat-completions endpoint (Gemini's compatibility layer by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"healthqa/internal/domain"
)

// ErrMissingCredential is returned when the API key variable is unset.
var ErrMissingCredential = errors.New("missing API credential")

// ErrEmptyReply is returned when the model answers without any choice.
var ErrEmptyReply = errors.New("model returned no reply")

type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Generator sends a prompt to the chat model and returns its single reply.
// The client never retries: a failed call ends the turn.
type Generator struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewGenerator(cfg Config) (*Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: env %s is empty", ErrMissingCredential, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		return nil, errors.New("generator model required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Generator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (g *Generator) Name() string { return g.model }

// Generate maps the prompt onto chat messages and returns the first choice.
func (g *Generator) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
		Temperature: openai.Float(g.temperature),
	}
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion failed with status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
