package faq

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yanqian/faq-rag/internal/domain/vectorindex"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

// State is a step of the index build/load pipeline.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateRebuilding    State = "rebuilding"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// Outcome records whether the ready index came from storage or was rebuilt.
type Outcome string

const (
	OutcomeLoaded  Outcome = "loaded"
	OutcomeRebuilt Outcome = "rebuilt"
)

// Snapshot is the immutable retrieval state shared by all requests.
type Snapshot struct {
	Corpus    *Corpus
	Index     *vectorindex.Flat
	Outcome   Outcome
	Model     string
	Dimension int

	// Fingerprint changes whenever the corpus content, order, model or
	// dimension changes. Answer cache keys are scoped by it.
	Fingerprint string
}

// Pipeline loads persisted artifacts or rebuilds them from the corpus. It runs
// at most once; later Run calls return the first result.
type Pipeline struct {
	source    CorpusSource
	embedder  *EmbeddingProvider
	artifacts ArtifactRepository
	logger    *slog.Logger

	state    atomic.Value
	once     sync.Once
	snapshot *Snapshot
	err      error
}

// NewPipeline wires the pipeline collaborators.
func NewPipeline(source CorpusSource, embedder *EmbeddingProvider, artifacts ArtifactRepository, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		source:    source,
		embedder:  embedder,
		artifacts: artifacts,
		logger:    logger.With("component", "faq.pipeline"),
	}
	p.state.Store(StateUninitialized)
	return p
}

// State returns the current pipeline state. Safe for concurrent use.
func (p *Pipeline) State() State {
	return p.state.Load().(State)
}

// Run initializes the retrieval snapshot.
func (p *Pipeline) Run(ctx context.Context) (*Snapshot, error) {
	p.once.Do(func() {
		p.snapshot, p.err = p.run(ctx)
		if p.err != nil {
			p.transition(StateFailed, "error", p.err)
		}
	})
	return p.snapshot, p.err
}

func (p *Pipeline) run(ctx context.Context) (*Snapshot, error) {
	p.transition(StateLoading)

	corpus, err := LoadCorpus(ctx, p.source)
	if err != nil {
		return nil, err
	}
	if err := p.embedder.Probe(ctx); err != nil {
		return nil, err
	}

	inspection := InspectArtifacts(ctx, p.artifacts, corpus.Len(), p.embedder.Model(), p.embedder.Dimension())
	if inspection.Validity == ArtifactsValid {
		p.transition(StateReady, "outcome", OutcomeLoaded, "records", corpus.Len(), "dimension", inspection.Index.Dim())
		return p.newSnapshot(corpus, inspection.Index, OutcomeLoaded), nil
	}

	p.logger.Warn("persisted artifacts unusable, rebuilding", "validity", inspection.Validity, "reason", inspection.Reason, "error", inspection.Err())
	p.transition(StateRebuilding, "records", corpus.Len())
	index, err := p.rebuild(ctx, corpus)
	if err != nil {
		return nil, err
	}
	p.transition(StateReady, "outcome", OutcomeRebuilt, "records", corpus.Len(), "dimension", index.Dim())
	return p.newSnapshot(corpus, index, OutcomeRebuilt), nil
}

func (p *Pipeline) rebuild(ctx context.Context, corpus *Corpus) (*vectorindex.Flat, error) {
	vectors, err := p.embedder.Embed(ctx, corpus.Questions())
	if err != nil {
		return nil, apperrors.Wrap(CodeIndexBuildFailed, "failed to embed corpus", err)
	}
	matrix, err := vectorindex.FromRows(p.embedder.Dimension(), vectors)
	if err != nil {
		return nil, apperrors.Wrap(CodeIndexBuildFailed, "failed to assemble embedding matrix", err)
	}
	index, err := vectorindex.Build(matrix, p.embedder.Model())
	if err != nil {
		return nil, apperrors.Wrap(CodeIndexBuildFailed, "failed to build vector index", err)
	}
	blob, err := index.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(CodeIndexBuildFailed, "failed to serialize vector index", err)
	}
	if err := p.artifacts.SaveMatrix(ctx, matrix); err != nil {
		return nil, apperrors.Wrap(CodeIndexBuildFailed, "failed to persist embedding matrix", err)
	}
	if err := p.artifacts.SaveIndex(ctx, blob); err != nil {
		return nil, apperrors.Wrap(CodeIndexBuildFailed, "failed to persist vector index", err)
	}
	return index, nil
}

func (p *Pipeline) newSnapshot(corpus *Corpus, index *vectorindex.Flat, outcome Outcome) *Snapshot {
	model := p.embedder.Model()
	return &Snapshot{
		Corpus:      corpus,
		Index:       index,
		Outcome:     outcome,
		Model:       model,
		Dimension:   index.Dim(),
		Fingerprint: fingerprint(corpus, model, index.Dim()),
	}
}

func fingerprint(corpus *Corpus, model string, dim int) string {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s\x00%d\x00%d\x00", model, dim, corpus.Len())
	for _, rec := range corpus.records {
		_, _ = io.WriteString(h, rec.Question)
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, rec.Answer)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func (p *Pipeline) transition(next State, attrs ...any) {
	prev := p.State()
	p.state.Store(next)
	args := append([]any{"from", prev, "to", next}, attrs...)
	if next == StateFailed {
		p.logger.Error("pipeline state changed", args...)
		return
	}
	p.logger.Info("pipeline state changed", args...)
}
