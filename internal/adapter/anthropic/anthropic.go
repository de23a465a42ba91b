// Package anthropic implements the decision port using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/voltaic-labs/chainswarm/internal/config"
)

// Decider sends prompts to the Anthropic API and returns the model's reply.
type Decider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates a Decider from Decision config. The API key is read from the
// ANTHROPIC_API_KEY environment variable by the SDK.
func New(cfg config.Decision) *Decider {
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaude3_5Sonnet20241022
	}
	return &Decider{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

// Decide sends the prompt as a single user message and concatenates the
// text blocks of the reply. Metadata is ignored by this backend.
func (d *Decider) Decide(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic message: empty response")
	}
	return sb.String(), nil
}
