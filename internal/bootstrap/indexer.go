package bootstrap

import (
	"context"
	"log/slog"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// Indexer runs the index build/load pipeline once and exits.
type Indexer struct {
	pipeline *faq.Pipeline
	logger   *slog.Logger
}

// NewIndexer is used by Wire to build the one-shot index command.
func NewIndexer(pipeline *faq.Pipeline, logger *slog.Logger) *Indexer {
	return &Indexer{pipeline: pipeline, logger: logger.With("component", "indexer")}
}

// Run loads valid artifacts or rebuilds and persists them.
func (i *Indexer) Run(ctx context.Context) error {
	snapshot, err := i.pipeline.Run(ctx)
	if err != nil {
		i.logger.Error("index pipeline failed", "state", i.pipeline.State(), "error", err)
		return err
	}
	i.logger.Info("index ready",
		"outcome", snapshot.Outcome,
		"records", snapshot.Corpus.Len(),
		"dimension", snapshot.Dimension,
		"model", snapshot.Model,
	)
	return nil
}
