// Package openai implements the decision port using the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/voltaic-labs/chainswarm/internal/config"
)

// Decider sends prompts to the OpenAI API and returns the model's reply.
type Decider struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// New creates a Decider from Decision config. The API key is read from the
// OPENAI_API_KEY environment variable by the SDK.
func New(cfg config.Decision) *Decider {
	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Decider{
		client:    openai.NewClient(),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

// Decide sends the prompt as a single user message and returns the first
// choice's text. Metadata is ignored by this backend.
func (d *Decider) Decide(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: d.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(d.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
