// Package llm wraps the OpenAI chat-completions API behind a single-call
// interface used by the conversation engine.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4-0125-preview"

// Client is the OpenAI chat client.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Chat sends one rendered prompt and returns the raw completion text.
// Temperature is pinned to zero; prompt rendering carries all the variation.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}
