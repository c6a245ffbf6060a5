// Package vecsearch implements Vectura's vector search engine: strategy
// routing between full-memory brute force and indexed candidate prefetch
// (SPEC_FULL.md §4.3).
package vecsearch

import (
	"context"
	"fmt"
	"sort"

	"github.com/vecturakit/vectura/internal/document"
	"github.com/vecturakit/vectura/internal/embedder"
	"github.com/vecturakit/vectura/internal/searchquery"
	"github.com/vecturakit/vectura/internal/storage"
	"github.com/vecturakit/vectura/internal/vectormath"
	"github.com/vecturakit/vectura/internal/verrors"
	"golang.org/x/sync/errgroup"
)

// Engine is the vector search engine consuming the storage contract
// (SPEC_FULL.md §4.3). It is stateless over storage: every call reaches
// through to the storage provided at Search time.
type Engine struct {
	embedder embedder.Embedder
}

// New creates a vector search engine backed by embedder, used to embed
// text queries.
func New(emb embedder.Embedder) *Engine {
	return &Engine{embedder: emb}
}

// Search resolves a query vector (embedding text queries as needed),
// selects a strategy-driven search path, and returns ranked results.
func (e *Engine) Search(ctx context.Context, query searchquery.Query, store storage.Basic, strategy searchquery.MemoryStrategy, opts searchquery.Options, dimension int) ([]searchquery.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	queryVector, err := e.resolveQueryVector(ctx, query, dimension)
	if err != nil {
		return nil, err
	}

	useIndexed, err := e.useIndexed(ctx, strategy, store)
	if err != nil {
		return nil, err
	}

	indexedStore, isIndexed := store.(storage.Indexed)
	if useIndexed && isIndexed {
		return e.indexedSearch(ctx, queryVector, indexedStore, strategy, opts)
	}
	return e.inMemorySearch(ctx, queryVector, store, opts)
}

func (e *Engine) resolveQueryVector(ctx context.Context, query searchquery.Query, dimension int) ([]float32, error) {
	var raw []float32

	switch query.Kind {
	case searchquery.QueryVector:
		raw = query.Vector
	case searchquery.QueryText:
		emb, err := e.embedder.Embed(ctx, query.Text)
		if err != nil {
			return nil, verrors.LoadFailed("embed query text", err)
		}
		raw = emb
	default:
		return nil, verrors.InvalidInput("unknown query kind")
	}

	if len(raw) != dimension {
		return nil, verrors.DimensionMismatch(dimension, len(raw))
	}

	return vectormath.Normalize(raw)
}

func (e *Engine) useIndexed(ctx context.Context, strategy searchquery.MemoryStrategy, store storage.Basic) (bool, error) {
	switch strategy.Kind {
	case searchquery.StrategyFullMemory:
		return false, nil
	case searchquery.StrategyIndexed:
		return true, nil
	case searchquery.StrategyAutomatic:
		count, err := store.GetTotalDocumentCount(ctx)
		if err != nil {
			return false, verrors.Storage("get document count", err)
		}
		return count >= strategy.Threshold, nil
	default:
		return false, verrors.InvalidInput("unknown memory strategy kind")
	}
}

// inMemorySearch implements §4.3.1: load everything, score everything.
func (e *Engine) inMemorySearch(ctx context.Context, queryVector []float32, store storage.Basic, opts searchquery.Options) ([]searchquery.Result, error) {
	docs, err := store.LoadDocuments(ctx)
	if err != nil {
		return nil, verrors.LoadFailed("load documents", err)
	}
	return e.rankDocuments(docs, queryVector, opts)
}

// indexedSearch implements §4.3.2.
func (e *Engine) indexedSearch(ctx context.Context, queryVector []float32, store storage.Indexed, strategy searchquery.MemoryStrategy, opts searchquery.Options) ([]searchquery.Result, error) {
	prefilterSize := opts.NumResults * strategy.CandidateMultiplier

	ids, ok, err := store.SearchVectorCandidates(ctx, queryVector, opts.NumResults, prefilterSize)
	if err != nil {
		return nil, verrors.Storage("search vector candidates", err)
	}

	if !ok {
		ids, err = e.fallbackCandidateIDs(ctx, queryVector, store, prefilterSize)
		if err != nil {
			return nil, err
		}
	}

	if len(ids) == 0 {
		return []searchquery.Result{}, nil
	}

	docs, err := loadCandidatesBatched(ctx, store, ids, strategy.BatchSize, strategy.MaxConcurrentBatches)
	if err != nil {
		return nil, err
	}

	return e.rankDocuments(docs, queryVector, opts)
}

// fallbackCandidateIDs runs §4.3.1 raised to prefilterSize with no
// threshold to produce a candidate id list, per §4.3.2's "None" branch.
// This is the one path that invokes storage's full load.
func (e *Engine) fallbackCandidateIDs(ctx context.Context, queryVector []float32, store storage.Basic, prefilterSize int) ([]string, error) {
	docs, err := store.LoadDocuments(ctx)
	if err != nil {
		return nil, verrors.LoadFailed("load documents", err)
	}

	ranked, err := e.rankDocuments(docs, queryVector, searchquery.Options{NumResults: prefilterSize})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	return ids, nil
}

// rankDocuments implements the shared scoring/threshold/sort/truncate
// tail of both search paths (§4.3.1, §4.3.4).
func (e *Engine) rankDocuments(docs []document.Document, queryVector []float32, opts searchquery.Options) ([]searchquery.Result, error) {
	if len(docs) == 0 {
		return []searchquery.Result{}, nil
	}

	dim := len(queryVector)
	matrix := make([]float32, 0, len(docs)*dim)
	for _, d := range docs {
		if len(d.Embedding) != dim {
			return nil, verrors.DimensionMismatch(dim, len(d.Embedding))
		}
		matrix = append(matrix, d.Embedding...)
	}

	scores, err := vectormath.BatchedCosine(queryVector, matrix, len(docs), dim)
	if err != nil {
		return nil, err
	}

	results := make([]searchquery.Result, 0, len(docs))
	for i, d := range docs {
		score := scores[i]
		if opts.Threshold != nil && score < *opts.Threshold {
			continue
		}
		results = append(results, searchquery.Result{
			ID:        d.ID,
			Text:      d.Text,
			Score:     score,
			CreatedAt: d.CreatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > opts.NumResults {
		results = results[:opts.NumResults]
	}
	return results, nil
}

// loadCandidatesBatched implements §4.3.3.
func loadCandidatesBatched(ctx context.Context, store storage.Indexed, ids []string, batchSize, maxConcurrentBatches int) ([]document.Document, error) {
	if len(ids) <= batchSize {
		byID, err := store.LoadDocumentsByID(ctx, ids)
		if err != nil {
			return nil, verrors.LoadFailed("load candidate batch", err)
		}
		return mapToSlice(byID), nil
	}

	chunks := chunkIDs(ids, batchSize)

	all := make(map[string]document.Document)
	failures := 0

	for start := 0; start < len(chunks); start += maxConcurrentBatches {
		end := start + maxConcurrentBatches
		if end > len(chunks) {
			end = len(chunks)
		}
		round := chunks[start:end]

		g, gctx := errgroup.WithContext(ctx)
		results := make([]map[string]document.Document, len(round))
		errs := make([]error, len(round))

		for i, chunk := range round {
			i, chunk := i, chunk
			g.Go(func() error {
				byID, err := store.LoadDocumentsByID(gctx, chunk)
				if err != nil {
					errs[i] = err
					return nil
				}
				results[i] = byID
				return nil
			})
		}
		_ = g.Wait()

		for i := range round {
			if errs[i] != nil {
				failures++
				continue
			}
			for id, doc := range results[i] {
				all[id] = doc
			}
		}
	}

	if len(all) == 0 && failures > 0 {
		return nil, verrors.LoadFailed(
			formatBatchFailure(failures), nil)
	}

	return mapToSlice(all), nil
}

func formatBatchFailure(n int) string {
	return fmt.Sprintf("Failed to load any candidate documents (%d batch(es) failed)", n)
}

func chunkIDs(ids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func mapToSlice(m map[string]document.Document) []document.Document {
	out := make([]document.Document, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}
