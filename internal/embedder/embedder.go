// Package embedder turns text into L2-normalized embedding vectors.
package embedder

import "context"

// Embedder generates vector embeddings for text (SPEC_FULL.md §6).
// Static and Ollama return unit-length vectors for non-blank text and an
// all-zero vector for blank text; DB and the search engines normalize
// vectors again before storing or comparing them.
type Embedder interface {
	// Dimensions returns the embedding dimension this embedder produces.
	// May need ctx to probe a remote model on first call.
	Dimensions(ctx context.Context) (int, error)

	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
