package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voltaic-labs/chainswarm/internal/port/vector"
)

// Knowledge retrieves operational playbook snippets from the vector index
// and folds them into prompt context.
type Knowledge struct {
	index vector.Index
	topK  int
}

// NewKnowledge creates a knowledge service over the given index.
func NewKnowledge(index vector.Index, topK int) *Knowledge {
	if topK <= 0 {
		topK = 3
	}
	return &Knowledge{index: index, topK: topK}
}

// Seed indexes the given documents.
func (k *Knowledge) Seed(ctx context.Context, docs []vector.Document) error {
	if err := k.index.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("seed knowledge: %w", err)
	}
	slog.Info("knowledge seeded", "count", len(docs), "total", k.index.Count())
	return nil
}

// Search returns the top-K snippets for the query.
func (k *Knowledge) Search(ctx context.Context, query string) ([]vector.Result, error) {
	return k.index.Search(ctx, query, k.topK)
}

// EnrichContext searches the index with the prompt and merges matching
// snippets into the context map under the "playbooks" key. The input map is
// not modified; retrieval failures degrade to the original context.
func (k *Knowledge) EnrichContext(ctx context.Context, prompt string, promptCtx map[string]any) map[string]any {
	results, err := k.index.Search(ctx, prompt, k.topK)
	if err != nil {
		slog.Warn("knowledge retrieval failed", "error", err)
		return promptCtx
	}
	if len(results) == 0 {
		return promptCtx
	}

	snippets := make([]string, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, r.Document.Content)
	}

	enriched := make(map[string]any, len(promptCtx)+1)
	for key, val := range promptCtx {
		enriched[key] = val
	}
	enriched["playbooks"] = snippets
	return enriched
}
