// Package artifact persists the embedding matrix and serialized vector index.
package artifact

import (
	"context"
	"fmt"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/domain/vectorindex"
)

// BlobStore reads and writes named byte blobs. Get returns faq.ErrArtifactNotFound
// for names that were never written; Put replaces the blob atomically.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// BlobRepository stores the matrix as an .npy blob and the index as an opaque blob.
type BlobRepository struct {
	store      BlobStore
	matrixName string
	indexName  string
}

// NewBlobRepository constructs the repository over two blob names.
func NewBlobRepository(store BlobStore, matrixName, indexName string) *BlobRepository {
	return &BlobRepository{store: store, matrixName: matrixName, indexName: indexName}
}

// LoadMatrix implements faq.ArtifactRepository.
func (r *BlobRepository) LoadMatrix(ctx context.Context) (vectorindex.Matrix, error) {
	data, err := r.store.Get(ctx, r.matrixName)
	if err != nil {
		return vectorindex.Matrix{}, err
	}
	m, err := vectorindex.UnmarshalMatrix(data)
	if err != nil {
		return vectorindex.Matrix{}, fmt.Errorf("decode %s: %w", r.matrixName, err)
	}
	return m, nil
}

// SaveMatrix implements faq.ArtifactRepository.
func (r *BlobRepository) SaveMatrix(ctx context.Context, m vectorindex.Matrix) error {
	data, err := vectorindex.MarshalMatrix(m)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.matrixName, data)
}

// LoadIndex implements faq.ArtifactRepository.
func (r *BlobRepository) LoadIndex(ctx context.Context) ([]byte, error) {
	return r.store.Get(ctx, r.indexName)
}

// SaveIndex implements faq.ArtifactRepository.
func (r *BlobRepository) SaveIndex(ctx context.Context, blob []byte) error {
	return r.store.Put(ctx, r.indexName, blob)
}

var _ faq.ArtifactRepository = (*BlobRepository)(nil)
