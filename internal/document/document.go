// Package document defines Vectura's value object: a piece of text paired
// with its pre-normalized embedding.
package document

import "time"

// Document is immutable by value: update produces a new Document with the
// same ID and preserved CreatedAt (SPEC_FULL.md §3).
//
// Invariant: Embedding has unit L2 norm (±1e-5) for every persisted
// Document — normalization happens exactly once, at write time, never here.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

// WithText returns a copy of d with Text and Embedding replaced, preserving
// ID and CreatedAt. Callers are expected to pass an already-normalized
// embedding.
func (d Document) WithText(text string, embedding []float32) Document {
	return Document{
		ID:        d.ID,
		Text:      text,
		Embedding: embedding,
		CreatedAt: d.CreatedAt,
	}
}
