package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yanqian/faq-rag/internal/domain/vectorindex"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

const probeText = "embedding model readiness probe"

// Embedder converts texts into vectors, one per input and in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// EmbeddingProvider guards an Embedder: it enforces one vector per input,
// a single dimension for the lifetime of the process, and copies results.
type EmbeddingProvider struct {
	embedder Embedder

	mu  sync.RWMutex
	dim int
}

// NewEmbeddingProvider wraps embedder.
func NewEmbeddingProvider(embedder Embedder) *EmbeddingProvider {
	return &EmbeddingProvider{embedder: embedder}
}

// Model returns the configured model identifier.
func (p *EmbeddingProvider) Model() string {
	return p.embedder.Model()
}

// Dimension returns the vector size observed so far, or zero before the first call.
func (p *EmbeddingProvider) Dimension() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dim
}

// Probe embeds a fixed text to check the model is reachable and to learn its dimension.
func (p *EmbeddingProvider) Probe(ctx context.Context) error {
	if _, err := p.Embed(ctx, []string{probeText}); err != nil {
		return apperrors.Wrap(CodeModelUnavailable, fmt.Sprintf("embedding model %q unavailable", p.Model()), err)
	}
	return nil
}

// Embed returns one vector per text.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(texts))
	}

	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, errors.New("embedding response empty")
		}
		if err := p.checkDimension(len(vec)); err != nil {
			return nil, err
		}
		out[i] = append([]float32(nil), vec...)
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (p *EmbeddingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *EmbeddingProvider) checkDimension(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dim == 0 {
		p.dim = n
		return nil
	}
	if n != p.dim {
		return fmt.Errorf("%w: model returned %d values, expected %d", vectorindex.ErrDimensionMismatch, n, p.dim)
	}
	return nil
}
