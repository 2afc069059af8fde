package artifact

import (
	"context"
	"fmt"
	"sync"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// MemoryStore keeps blobs in memory. Useful for tests and local dev.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore constructs the store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get returns a copy of the stored blob.
func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", faq.ErrArtifactNotFound, name)
	}
	return append([]byte(nil), blob...), nil
}

// Put stores a copy of data.
func (s *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}

var _ BlobStore = (*MemoryStore)(nil)
