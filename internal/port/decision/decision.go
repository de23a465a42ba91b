// Package decision defines the decision port (interface): the pluggable
// component that maps a prompt (+ context) to a reasoning string.
package decision

import "context"

// Decider turns a fully-built prompt into free-form reasoning text.
// Implementations may call a hosted model or a local heuristic. Failures
// propagate to the caller unmodified; retry and timeout policy belong to
// the implementation or to the orchestrating caller, never to the core.
type Decider interface {
	Decide(ctx context.Context, prompt string, metadata map[string]any) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Deciders.
type Func func(ctx context.Context, prompt string, metadata map[string]any) (string, error)

// Decide implements Decider.
func (f Func) Decide(ctx context.Context, prompt string, metadata map[string]any) (string, error) {
	return f(ctx, prompt, metadata)
}
