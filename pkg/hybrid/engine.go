// Package hybrid implements Vectura's hybrid search engine: linear fusion
// of vector similarity and BM25-style lexical scoring (SPEC_FULL.md §4.4).
// Grounded on the teacher's pkg/searcher.FusionSearcher (dual-engine
// composition, errgroup fan-out), with its Reciprocal-Rank-Fusion scoring
// replaced by the spec's linear weighted formula. An error from either
// engine fails the whole search; there is no single-engine fallback.
package hybrid

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vecturakit/vectura/internal/document"
	"github.com/vecturakit/vectura/internal/embedder"
	"github.com/vecturakit/vectura/internal/searchquery"
	"github.com/vecturakit/vectura/internal/storage"
	"github.com/vecturakit/vectura/internal/textengine"
	"github.com/vecturakit/vectura/internal/verrors"
	"github.com/vecturakit/vectura/pkg/vecsearch"
)

const (
	// DefaultVectorWeight balances vector similarity against lexical score.
	DefaultVectorWeight = 0.5
	// DefaultBM25NormalizationFactor scales raw BM25 scores into [0,1]
	// before fusion.
	DefaultBM25NormalizationFactor = 10.0

	minBM25NormalizationFactor = 1e-9
)

// Config holds the weighting parameters for score fusion, clamped at
// construction — grounded on the teacher's FusionConfig/NewFusionSearcher
// idiom (weights as first-class constructor options, clamped once).
type Config struct {
	VectorWeight            float32
	BM25NormalizationFactor float32
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		VectorWeight:            DefaultVectorWeight,
		BM25NormalizationFactor: DefaultBM25NormalizationFactor,
	}
}

func (c Config) clamped() Config {
	if c.VectorWeight < 0 {
		c.VectorWeight = 0
	}
	if c.VectorWeight > 1 {
		c.VectorWeight = 1
	}
	if c.BM25NormalizationFactor < minBM25NormalizationFactor {
		c.BM25NormalizationFactor = minBM25NormalizationFactor
	}
	return c
}

// Engine composes a vector engine and a text engine with a configurable
// weight (SPEC_FULL.md §4.4).
type Engine struct {
	vector *vecsearch.Engine
	text   textengine.Engine
	config Config
	embed  embedder.Embedder
}

// New creates a hybrid search engine. vectorEngine handles Vector()
// queries and the vector half of Text() queries; textEngine handles the
// lexical half. emb embeds raw query text to obtain a query vector.
func New(vectorEngine *vecsearch.Engine, textEngine textengine.Engine, emb embedder.Embedder, config Config) *Engine {
	return &Engine{
		vector: vectorEngine,
		text:   textEngine,
		config: config.clamped(),
		embed:  emb,
	}
}

// Search implements §4.4: vector-only queries delegate entirely to the
// vector engine; text queries fan out to both engines and fuse.
func (e *Engine) Search(ctx context.Context, query searchquery.Query, store storage.Basic, strategy searchquery.MemoryStrategy, opts searchquery.Options, dimension int) ([]searchquery.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if query.Kind == searchquery.QueryVector {
		return e.vector.Search(ctx, query, store, strategy, opts, dimension)
	}

	queryVector, err := e.embed.Embed(ctx, query.Text)
	if err != nil {
		return nil, verrors.LoadFailed("embed hybrid query text", err)
	}

	fetchOpts := searchquery.Options{NumResults: opts.NumResults * 2}

	var vectorResults []searchquery.Result
	var textResults []textengine.Result
	var vectorErr, textErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorResults, vectorErr = e.vector.Search(gctx, searchquery.VectorQuery(queryVector), store, strategy, fetchOpts, dimension)
		return nil
	})
	g.Go(func() error {
		textResults, textErr = e.text.Search(gctx, query.Text, fetchOpts.NumResults)
		return nil
	})
	_ = g.Wait()

	if vectorErr != nil {
		return nil, vectorErr
	}
	if textErr != nil {
		return nil, verrors.Storage("text engine search", textErr)
	}

	return e.fuse(ctx, store, vectorResults, textResults, opts)
}

// fuse implements step 4-7 of §4.4's text-query path. A text-only hit (an
// id present in textResults but outside the vector engine's top
// fetchOpts.NumResults candidates) carries no Text/CreatedAt from
// textengine.Result, which only reports id and score — those fields are
// looked up from store so the emitted Result still satisfies §3's
// {id, text, score, createdAt} shape.
func (e *Engine) fuse(ctx context.Context, store storage.Basic, vectorResults []searchquery.Result, textResults []textengine.Result, opts searchquery.Options) ([]searchquery.Result, error) {
	byID := make(map[string]searchquery.Result, len(vectorResults))
	for _, r := range vectorResults {
		byID[r.ID] = r
	}

	textScores := make(map[string]float64, len(textResults))
	for _, r := range textResults {
		textScores[r.ID] = r.Score
	}

	var missing []string
	for id := range textScores {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	docs, err := lookupDocuments(ctx, store, missing)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(byID)+len(textScores))
	for id := range byID {
		ids[id] = struct{}{}
	}
	for id := range textScores {
		ids[id] = struct{}{}
	}

	results := make([]searchquery.Result, 0, len(ids))
	for id := range ids {
		vectorScore := float32(0)
		base, hasVector := byID[id]
		if !hasVector {
			if doc, ok := docs[id]; ok {
				base = searchquery.Result{ID: doc.ID, Text: doc.Text, CreatedAt: doc.CreatedAt}
			}
		} else {
			vectorScore = base.Score
		}

		textScore := clamp32(float32(textScores[id])/e.config.BM25NormalizationFactor, 0, 1)
		hybrid := e.config.VectorWeight*vectorScore + (1-e.config.VectorWeight)*textScore

		if opts.Threshold != nil && hybrid < *opts.Threshold {
			continue
		}

		results = append(results, searchquery.Result{
			ID:        id,
			Text:      base.Text,
			Score:     hybrid,
			CreatedAt: base.CreatedAt,
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

// lookupDocuments resolves ids to documents, preferring storage.Indexed's
// LoadDocumentsByID and falling back to filtering a full LoadDocuments,
// mirroring DB.loadOne's fallback (SPEC_FULL.md §4.5). Missing ids are
// simply absent from the result, not an error.
func lookupDocuments(ctx context.Context, store storage.Basic, ids []string) (map[string]document.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	if indexed, ok := store.(storage.Indexed); ok {
		docs, err := indexed.LoadDocumentsByID(ctx, ids)
		if err != nil {
			return nil, verrors.LoadFailed("load text-only hit documents", err)
		}
		return docs, nil
	}

	all, err := store.LoadDocuments(ctx)
	if err != nil {
		return nil, verrors.LoadFailed("load documents", err)
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	docs := make(map[string]document.Document, len(ids))
	for _, d := range all {
		if _, ok := want[d.ID]; ok {
			docs[d.ID] = d
		}
	}
	return docs, nil
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IndexDocument forwards to the text engine only; the vector engine is
// stateless over storage (§4.4 "index maintenance").
func (e *Engine) IndexDocument(ctx context.Context, id, text string) error {
	return e.text.IndexDocument(ctx, id, text)
}

// RemoveDocument forwards to the text engine only.
func (e *Engine) RemoveDocument(ctx context.Context, id string) error {
	return e.text.RemoveDocument(ctx, id)
}
