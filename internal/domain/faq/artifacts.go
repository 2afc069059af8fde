package faq

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanqian/faq-rag/internal/domain/vectorindex"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

// ArtifactRepository persists the embedding matrix and the serialized index.
// Load methods return ErrArtifactNotFound when nothing was saved. Save methods
// must replace the previous artifact atomically.
type ArtifactRepository interface {
	LoadMatrix(ctx context.Context) (vectorindex.Matrix, error)
	SaveMatrix(ctx context.Context, m vectorindex.Matrix) error
	LoadIndex(ctx context.Context) ([]byte, error)
	SaveIndex(ctx context.Context, blob []byte) error
}

// Validity classifies a persisted matrix/index pair.
type Validity string

const (
	// ArtifactsValid means both artifacts exist and agree with the corpus and model.
	ArtifactsValid Validity = "valid"
	// ArtifactsMissing means at least one artifact has never been written.
	ArtifactsMissing Validity = "missing"
	// ArtifactsCorrupt means artifacts exist but are unreadable or inconsistent.
	ArtifactsCorrupt Validity = "corrupt"
)

// Inspection is the outcome of checking persisted artifacts.
type Inspection struct {
	Validity Validity
	Reason   string
	Index    *vectorindex.Flat
}

// InspectArtifacts loads both artifacts and checks them against the corpus
// size, the embedding model and dimension, and each other.
func InspectArtifacts(ctx context.Context, repo ArtifactRepository, corpusLen int, model string, dim int) Inspection {
	matrix, matrixErr := repo.LoadMatrix(ctx)
	blob, indexErr := repo.LoadIndex(ctx)

	switch {
	case errors.Is(matrixErr, ErrArtifactNotFound):
		return Inspection{Validity: ArtifactsMissing, Reason: "embedding matrix not found"}
	case errors.Is(indexErr, ErrArtifactNotFound):
		return Inspection{Validity: ArtifactsMissing, Reason: "vector index not found"}
	case matrixErr != nil:
		return corrupt("embedding matrix unreadable: %v", matrixErr)
	case indexErr != nil:
		return corrupt("vector index unreadable: %v", indexErr)
	}

	index, err := vectorindex.UnmarshalIndex(blob)
	if err != nil {
		return corrupt("vector index undecodable: %v", err)
	}
	if matrix.Rows != corpusLen {
		return corrupt("embedding matrix has %d rows, corpus has %d records", matrix.Rows, corpusLen)
	}
	if index.Len() != corpusLen {
		return corrupt("vector index has %d entries, corpus has %d records", index.Len(), corpusLen)
	}
	if matrix.Dim != index.Dim() {
		return corrupt("embedding matrix dimension %d differs from index dimension %d", matrix.Dim, index.Dim())
	}
	if dim > 0 && index.Dim() != dim {
		return corrupt("index dimension %d differs from model dimension %d", index.Dim(), dim)
	}
	if index.Model() != model {
		return corrupt("index built with model %q, configured model is %q", index.Model(), model)
	}
	if !index.Vectors().Equal(matrix) {
		return corrupt("vector index does not match embedding matrix")
	}
	return Inspection{Validity: ArtifactsValid, Index: index}
}

func corrupt(format string, args ...any) Inspection {
	return Inspection{Validity: ArtifactsCorrupt, Reason: fmt.Sprintf(format, args...)}
}

// Err describes a non-valid inspection as an error. It returns nil for valid artifacts.
func (i Inspection) Err() error {
	switch i.Validity {
	case ArtifactsMissing:
		return fmt.Errorf("%w: %s", ErrArtifactNotFound, i.Reason)
	case ArtifactsCorrupt:
		return apperrors.Wrap(CodeIndexCorrupt, i.Reason, nil)
	default:
		return nil
	}
}
