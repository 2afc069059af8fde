package faq

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/yanqian/faq-rag/internal/domain/vectorindex"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEmbedder maps known texts to fixed vectors; unknown texts get a zero vector.
type stubEmbedder struct {
	model   string
	dim     int
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Model() string { return s.model }

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := s.vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

type stubSource struct {
	records []Record
	err     error
}

func (s stubSource) Load(context.Context) ([]Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type memoryArtifacts struct {
	matrix      *vectorindex.Matrix
	index       []byte
	matrixErr   error
	saveErr     error
	matrixSaves int
	indexSaves  int
}

func (m *memoryArtifacts) LoadMatrix(context.Context) (vectorindex.Matrix, error) {
	if m.matrixErr != nil {
		return vectorindex.Matrix{}, m.matrixErr
	}
	if m.matrix == nil {
		return vectorindex.Matrix{}, ErrArtifactNotFound
	}
	return *m.matrix, nil
}

func (m *memoryArtifacts) SaveMatrix(_ context.Context, matrix vectorindex.Matrix) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.matrixSaves++
	m.matrix = &matrix
	return nil
}

func (m *memoryArtifacts) LoadIndex(context.Context) ([]byte, error) {
	if m.index == nil {
		return nil, ErrArtifactNotFound
	}
	return m.index, nil
}

func (m *memoryArtifacts) SaveIndex(_ context.Context, blob []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.indexSaves++
	m.index = append([]byte(nil), blob...)
	return nil
}

type memoryStore struct {
	answers  map[string]AnswerRecord
	counts   map[string]int64
	display  map[string]string
	getErr   error
	saveErr  error
	topErr   error
	savedTTL time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		answers: make(map[string]AnswerRecord),
		counts:  make(map[string]int64),
		display: make(map[string]string),
	}
}

func (m *memoryStore) GetAnswer(_ context.Context, key string) (AnswerRecord, bool, error) {
	if m.getErr != nil {
		return AnswerRecord{}, false, m.getErr
	}
	rec, ok := m.answers[key]
	return rec, ok, nil
}

func (m *memoryStore) SaveAnswer(_ context.Context, record AnswerRecord, ttl time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedTTL = ttl
	m.answers[record.Key] = record
	return nil
}

func (m *memoryStore) IncrementQuery(_ context.Context, canonical, display string) error {
	m.counts[canonical]++
	m.display[canonical] = display
	return nil
}

func (m *memoryStore) TopQueries(_ context.Context, limit int) ([]TrendingQuery, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	out := make([]TrendingQuery, 0, len(m.counts))
	for canonical, count := range m.counts {
		out = append(out, TrendingQuery{Query: m.display[canonical], Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Query < out[j].Query
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// supportFAQs is a three-entry corpus with hand-picked semantic vectors.
func supportFAQs() ([]Record, *stubEmbedder) {
	records := []Record{
		{Question: "How do I reset my password?", Answer: "Use the Forgot password link on the sign-in page."},
		{Question: "What is the refund policy?", Answer: "Courses can be refunded within 30 days of purchase."},
		{Question: "How can I contact support?", Answer: "Email support@example.com."},
	}
	embedder := &stubEmbedder{
		model: "stub-semantic",
		dim:   3,
		vectors: map[string][]float32{
			records[0].Question:        {1, 0, 0},
			records[1].Question:        {0, 1, 0},
			records[2].Question:        {0, 0, 1},
			"Can I get my money back?": {0.1, 0.9, 0.2},
			"I forgot my password":     {0.9, 0.1, 0},
		},
	}
	return records, embedder
}

func readySnapshot(records []Record, embedder Embedder) (*Snapshot, *EmbeddingProvider, error) {
	_, snapshot, provider, err := readyPipeline(records, embedder)
	return snapshot, provider, err
}

func readyPipeline(records []Record, embedder Embedder) (*Pipeline, *Snapshot, *EmbeddingProvider, error) {
	provider := NewEmbeddingProvider(embedder)
	pipeline := NewPipeline(stubSource{records: records}, provider, &memoryArtifacts{}, newTestLogger())
	snapshot, err := pipeline.Run(context.Background())
	return pipeline, snapshot, provider, err
}
