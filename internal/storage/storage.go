// Package storage defines the contract the vector search engine consumes
// (SPEC_FULL.md §4.2) and two providers: a one-file-per-document
// FileStore and an in-memory MemoryStore for tests and transient use.
//
// A provider satisfies Basic unconditionally. Indexed capability is
// optional and polymorphic: the engine type-asserts a Basic value to
// Indexed at call time rather than requiring every provider to implement
// it — the Go rendering of "capability detection is observable at
// runtime" from SPEC_FULL.md §4.2, grounded on the teacher's pattern of
// type-asserting optional storage capabilities (internal/store).
package storage

import (
	"context"

	"github.com/vecturakit/vectura/internal/document"
)

// Basic is the capability set every storage provider exposes.
type Basic interface {
	// LoadDocuments returns every persisted document.
	LoadDocuments(ctx context.Context) ([]document.Document, error)

	// SaveDocument upserts a single document by id.
	SaveDocument(ctx context.Context, doc document.Document) error

	// SaveDocuments upserts a batch of documents. Equivalent to per-document
	// saves in any order, but providers may optimize the batch case.
	SaveDocuments(ctx context.Context, docs []document.Document) error

	// DeleteDocument removes a document by id. Idempotent: succeeds whether
	// or not the id existed.
	DeleteDocument(ctx context.Context, id string) error

	// UpdateDocument upserts doc, preserving id semantics identical to
	// SaveDocument (update is a storage-level synonym for upsert; the
	// distinction between add and update lives in the orchestrator).
	UpdateDocument(ctx context.Context, doc document.Document) error

	// GetTotalDocumentCount returns the number of persisted documents.
	// Implementations may cache this value.
	GetTotalDocumentCount(ctx context.Context) (int, error)

	// CreateStorageDirectoryIfNeeded is idempotent setup for on-disk
	// providers; a no-op for in-memory providers.
	CreateStorageDirectoryIfNeeded(ctx context.Context) error
}

// Indexed is the optional polymorphic extension a storage provider may
// additionally satisfy to support the indexed search path (§4.3.2).
type Indexed interface {
	Basic

	// LoadDocumentsPage returns a page of documents.
	LoadDocumentsPage(ctx context.Context, offset, limit int) ([]document.Document, error)

	// LoadDocumentsByID returns a partial map: ids missing in the result
	// are treated as not found, not as errors.
	LoadDocumentsByID(ctx context.Context, ids []string) (map[string]document.Document, error)

	// SearchVectorCandidates returns an optional ANN/indexed shortlist.
	//
	// Returning (nil, false) means "no index available; fall back".
	// Returning ([]string{}, true) means "index exists, no hits".
	// If ok, ids are the top-prefilterSize candidates in descending
	// approximate-similarity order.
	SearchVectorCandidates(ctx context.Context, queryEmbedding []float32, topK, prefilterSize int) ([]string, bool, error)
}

// BulkResettable is an optional capability letting a provider clear all
// documents without the orchestrator first loading every id (SPEC_FULL.md
// §4.5, resolving Open Question (c) from §9).
type BulkResettable interface {
	ResetAll(ctx context.Context) error
}
