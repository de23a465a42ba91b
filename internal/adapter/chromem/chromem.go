// Package chromem implements the vector index port using chromem-go, an
// embedded vector store with optional gob persistence.
package chromem

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/voltaic-labs/chainswarm/internal/config"
	"github.com/voltaic-labs/chainswarm/internal/port/vector"
)

// Index implements vector.Index over a chromem collection.
type Index struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
}

// New opens or creates the configured collection. When PersistPath is empty
// the index lives in memory only.
func New(cfg config.Knowledge) (*Index, error) {
	name := cfg.Collection
	if name == "" {
		name = "default"
	}

	var db *chromemgo.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromemgo.NewPersistentDB(filepath.Join(cfg.PersistPath, "chromem.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("open persistent index: %w", err)
		}
	} else {
		db = chromemgo.NewDB()
	}

	collection, err := db.GetOrCreateCollection(name, nil, hashEmbedding)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	return &Index{db: db, collection: collection}, nil
}

// Upsert adds or replaces documents in the collection.
func (i *Index) Upsert(ctx context.Context, docs []vector.Document) error {
	for _, doc := range docs {
		err := i.collection.AddDocument(ctx, chromemgo.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Search returns up to topK documents ranked by cosine similarity.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]vector.Result, error) {
	if topK <= 0 {
		topK = 3
	}
	if n := i.collection.Count(); n < topK {
		if n == 0 {
			return nil, nil
		}
		topK = n
	}

	results, err := i.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	out := make([]vector.Result, 0, len(results))
	for _, r := range results {
		out = append(out, vector.Result{
			Document: vector.Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() int {
	return i.collection.Count()
}

const embeddingDims = 256

// hashEmbedding is a local bag-of-words embedding: each token is hashed into
// a fixed-size vector, which is then L2-normalized. It needs no external
// embedding API and is stable across runs, which is enough for keyword-level
// retrieval of playbook snippets.
func hashEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?()[]{}\"'")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
