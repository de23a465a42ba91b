// Package vector defines the similarity-search port (interface) used to
// retrieve operational playbook snippets that enrich agent prompts.
package vector

import "context"

// Document is one indexed knowledge snippet.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result pairs a document with its similarity to the query (0..1).
type Result struct {
	Document   Document `json:"document"`
	Similarity float32  `json:"similarity"`
}

// Index is the port interface for upserting and searching documents.
type Index interface {
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, topK int) ([]Result, error)
	Count() int
}
