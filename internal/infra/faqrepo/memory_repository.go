package faqrepo

import (
	"context"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// MemoryRepository serves a fixed set of FAQ rows. Used for tests/dev.
type MemoryRepository struct {
	records []faq.Record
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository(records []faq.Record) *MemoryRepository {
	return &MemoryRepository{records: append([]faq.Record(nil), records...)}
}

// Load implements faq.CorpusSource.
func (r *MemoryRepository) Load(context.Context) ([]faq.Record, error) {
	return append([]faq.Record(nil), r.records...), nil
}

var _ faq.CorpusSource = (*MemoryRepository)(nil)
