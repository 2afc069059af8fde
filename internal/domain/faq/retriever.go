package faq

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

const fallbackTopK = 3

// Retriever embeds a query and maps its nearest index entries back to FAQ records.
type Retriever struct {
	snapshot    *Snapshot
	embedder    *EmbeddingProvider
	defaultTopK int
}

// NewRetriever builds a retriever over an initialized snapshot.
func NewRetriever(cfg Config, snapshot *Snapshot, embedder *EmbeddingProvider) *Retriever {
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = fallbackTopK
	}
	return &Retriever{snapshot: snapshot, embedder: embedder, defaultTopK: topK}
}

// DefaultTopK is used when callers pass a non-positive topK.
func (r *Retriever) DefaultTopK() int { return r.defaultTopK }

// Retrieve returns the topK closest FAQ records, best match first. It never
// filters by distance; an empty corpus yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Wrap(CodeInvalidQuery, "query cannot be empty", nil)
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if r.snapshot.Corpus.Len() == 0 {
		return []RetrievalResult{}, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(CodeFAQ, "query embedding failed", err)
	}
	neighbors, err := r.snapshot.Index.Search(vector, topK)
	if err != nil {
		return nil, apperrors.Wrap(CodeFAQ, "vector search failed", err)
	}

	results := make([]RetrievalResult, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := r.snapshot.Corpus.At(n.Position)
		if !ok {
			return nil, apperrors.Wrap(CodeFAQ, fmt.Sprintf("index position %d outside corpus", n.Position), nil)
		}
		results = append(results, RetrievalResult{
			ID:       rec.ID,
			Question: rec.Question,
			Answer:   rec.Answer,
			Distance: n.Distance,
		})
	}
	return results, nil
}
