package storage

import (
	"context"
	"sync"

	"github.com/vecturakit/vectura/internal/document"
)

// MemoryStore is an in-memory Basic-only storage provider for tests and
// transient use (SPEC_FULL.md §2). It deliberately does not implement
// Indexed, exercising the vector search engine's fallback path whenever a
// caller configures an Indexed/Automatic memory strategy against it.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]document.Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]document.Document)}
}

// LoadDocuments returns every persisted document.
func (s *MemoryStore) LoadDocuments(ctx context.Context) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

// SaveDocument upserts a single document.
func (s *MemoryStore) SaveDocument(ctx context.Context, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

// SaveDocuments upserts a batch of documents.
func (s *MemoryStore) SaveDocuments(ctx context.Context, docs []document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return nil
}

// DeleteDocument removes a document by id; idempotent.
func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// UpdateDocument upserts doc.
func (s *MemoryStore) UpdateDocument(ctx context.Context, doc document.Document) error {
	return s.SaveDocument(ctx, doc)
}

// GetTotalDocumentCount returns the number of persisted documents.
func (s *MemoryStore) GetTotalDocumentCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// CreateStorageDirectoryIfNeeded is a no-op for MemoryStore.
func (s *MemoryStore) CreateStorageDirectoryIfNeeded(ctx context.Context) error {
	return nil
}

// ResetAll clears every document, satisfying BulkResettable.
func (s *MemoryStore) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]document.Document)
	return nil
}

var (
	_ Basic          = (*MemoryStore)(nil)
	_ BulkResettable = (*MemoryStore)(nil)
)
