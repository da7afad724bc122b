// Package llm is the gateway to the chat-completions backend. It carries no
// retry or backoff logic of its own; transport faults surface as errors.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds backend connection settings
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

// Client wraps the OpenAI-compatible API client
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
}

// New creates a gateway client. An empty APIKey falls back to
// $OPENAI_API_KEY; an empty BaseURL uses the SDK default.
func New(cfg Config) *Client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:       openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Send submits the transcript plus the tool schemas and returns the
// assistant message for this turn, unmodified. Parallel tool calls are
// disabled so invocations arrive in a deterministic order.
func (c *Client) Send(ctx context.Context, transcript []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:             c.model,
		Messages:          transcript,
		MaxTokens:         c.maxTokens,
		Tools:             tools,
		ParallelToolCalls: false,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	slog.Debug("model response",
		"content_length", len(choice.Message.Content),
		"tool_calls", len(choice.Message.ToolCalls),
		"finish_reason", choice.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)

	return choice.Message, nil
}
