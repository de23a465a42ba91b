// Package staticdecider implements the decision port with canned responses.
// It is the default backend for local development and tests; no network,
// no API keys.
package staticdecider

import (
	"context"
	"fmt"
	"strings"
)

// Decider returns deterministic reasoning derived from the prompt.
type Decider struct {
	// Reply, when non-empty, is returned verbatim for every prompt.
	Reply string
}

// New creates a static decider with no fixed reply.
func New() *Decider {
	return &Decider{}
}

// Decide echoes a short analysis of the prompt. The first non-empty line of
// the prompt body is treated as the subject.
func (d *Decider) Decide(_ context.Context, prompt string, _ map[string]any) (string, error) {
	if d.Reply != "" {
		return d.Reply, nil
	}

	subject := "the request"
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			subject = line
			break
		}
	}
	return fmt.Sprintf("Reviewed %s. No action taken: decision backend is static. Configure an LLM provider for live reasoning.", subject), nil
}
