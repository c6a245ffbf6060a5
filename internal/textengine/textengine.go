// Package textengine provides BM25-scored keyword search over document
// text, the sparse half of hybrid search (SPEC_FULL.md §4.4).
package textengine

import "context"

// Result is a single keyword match.
type Result struct {
	ID    string
	Score float64
}

// Engine indexes and searches document text independently of the vector
// search path.
type Engine interface {
	// Search returns up to numResults matches for text, scored by BM25,
	// highest score first.
	Search(ctx context.Context, text string, numResults int) ([]Result, error)

	// IndexDocument adds or replaces the indexed text for id.
	IndexDocument(ctx context.Context, id, text string) error

	// RemoveDocument removes id from the index. Idempotent.
	RemoveDocument(ctx context.Context, id string) error

	// Close releases index resources.
	Close() error
}
