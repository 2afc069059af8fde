package faq

import (
	"context"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

// CorpusSource yields the FAQ rows in their canonical order.
type CorpusSource interface {
	Load(ctx context.Context) ([]Record, error)
}

// Corpus is the read-only, position-indexed FAQ collection.
type Corpus struct {
	records []Record
}

// NewCorpus copies records and assigns each its position as ID.
func NewCorpus(records []Record) *Corpus {
	out := make([]Record, len(records))
	for i, rec := range records {
		rec.ID = i
		out[i] = rec
	}
	return &Corpus{records: out}
}

// LoadCorpus reads the source once and wraps failures as corpus_load_error.
func LoadCorpus(ctx context.Context, source CorpusSource) (*Corpus, error) {
	records, err := source.Load(ctx)
	if err != nil {
		return nil, apperrors.Wrap(CodeCorpusLoad, "failed to load faq corpus", err)
	}
	return NewCorpus(records), nil
}

// Len returns the number of records.
func (c *Corpus) Len() int { return len(c.records) }

// At returns the record at position pos.
func (c *Corpus) At(pos int) (Record, bool) {
	if pos < 0 || pos >= len(c.records) {
		return Record{}, false
	}
	return c.records[pos], true
}

// Questions returns all question texts in corpus order.
func (c *Corpus) Questions() []string {
	out := make([]string, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Question
	}
	return out
}

// Head returns a copy of the first n records.
func (c *Corpus) Head(n int) []Record {
	if n <= 0 || n > len(c.records) {
		n = len(c.records)
	}
	out := make([]Record, n)
	copy(out, c.records[:n])
	return out
}
