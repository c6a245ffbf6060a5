// Package vectura is an embeddable vector database: it orchestrates a
// storage provider, an embedder, and a vector or hybrid search engine
// behind a single DB type (SPEC_FULL.md §4.5).
package vectura

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vecturakit/vectura/internal/document"
	"github.com/vecturakit/vectura/internal/embedder"
	"github.com/vecturakit/vectura/internal/searchquery"
	"github.com/vecturakit/vectura/internal/storage"
	"github.com/vecturakit/vectura/internal/telemetry"
	"github.com/vecturakit/vectura/internal/vectormath"
	"github.com/vecturakit/vectura/internal/verrors"
)

// Searcher is the contract shared by pkg/vecsearch.Engine and
// pkg/hybrid.Engine, letting DB depend on whichever is configured without
// knowing which (SPEC_FULL.md §4.5, grounded on the teacher's
// pkg/searcher.Searcher interface).
type Searcher interface {
	Search(ctx context.Context, query searchquery.Query, store storage.Basic, strategy searchquery.MemoryStrategy, opts searchquery.Options, dimension int) ([]searchquery.Result, error)
}

// Indexer is satisfied by search engines that maintain a text index
// alongside storage (the hybrid engine). A vector-only engine does not
// implement it, and DB treats indexing as a no-op in that case.
type Indexer interface {
	IndexDocument(ctx context.Context, id, text string) error
	RemoveDocument(ctx context.Context, id string) error
}

// DB is Vectura's orchestrator. It composes a storage provider, an
// embedder, and a Searcher, serializing mutating operations behind a
// single mutex (SPEC_FULL.md §5), following the teacher's
// async.BackgroundIndexer single-mutex-guarded-flag discipline, adapted
// from "one background job at a time" to "one mutation at a time".
type DB struct {
	mu sync.Mutex

	store    storage.Basic
	embed    embedder.Embedder
	search   Searcher
	strategy searchquery.MemoryStrategy
	metrics  *telemetry.Metrics

	dimension         int
	defaultNumResults int
	defaultThreshold  *float32
}

// Option configures a DB at construction, following the teacher's
// functional-options idiom seen throughout pkg/searcher/pkg/indexer
// (WithBM25Store, WithSearchEmbedder, ...).
type Option func(*DB)

// WithStorage sets the storage provider. Required.
func WithStorage(s storage.Basic) Option {
	return func(db *DB) { db.store = s }
}

// WithEmbedder sets the embedder used to turn text into vectors. Required.
func WithEmbedder(e embedder.Embedder) Option {
	return func(db *DB) { db.embed = e }
}

// WithSearcher sets the search engine (pkg/vecsearch.Engine or
// pkg/hybrid.Engine). Required.
func WithSearcher(s Searcher) Option {
	return func(db *DB) { db.search = s }
}

// WithMemoryStrategy overrides the default memory strategy
// (searchquery.AutomaticStrategy with implementation-chosen defaults).
func WithMemoryStrategy(strategy searchquery.MemoryStrategy) Option {
	return func(db *DB) { db.strategy = strategy }
}

// WithDimension overrides the embedder's own reported dimension. Useful
// when the embedder's Dimensions call is expensive or unavailable offline.
func WithDimension(dim int) Option {
	return func(db *DB) { db.dimension = dim }
}

// WithDefaultNumResults sets the numResults used when search is called
// without one.
func WithDefaultNumResults(n int) Option {
	return func(db *DB) { db.defaultNumResults = n }
}

// WithDefaultThreshold sets the threshold used when search is called
// without one.
func WithDefaultThreshold(t float32) Option {
	return func(db *DB) { db.defaultThreshold = &t }
}

// WithTelemetry attaches a query metrics collector. Every search records a
// telemetry.QueryEvent once it completes.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(db *DB) { db.metrics = m }
}

func defaultStrategy() searchquery.MemoryStrategy {
	return searchquery.AutomaticStrategy(1000, 4, 64, 4)
}

// Open constructs a DB from opts. Storage, embedder and searcher are
// required; CreateStorageDirectoryIfNeeded is called during Open so a
// fresh FileStore has its directory ready before the first write.
func Open(ctx context.Context, opts ...Option) (*DB, error) {
	db := &DB{
		strategy:          defaultStrategy(),
		defaultNumResults: 10,
	}
	for _, opt := range opts {
		opt(db)
	}

	if db.store == nil {
		return nil, verrors.InvalidInput("storage provider is required")
	}
	if db.embed == nil {
		return nil, verrors.InvalidInput("embedder is required")
	}
	if db.search == nil {
		return nil, verrors.InvalidInput("search engine is required")
	}
	if err := db.strategy.Validate(); err != nil {
		return nil, err
	}

	if db.dimension == 0 {
		dim, err := db.embed.Dimensions(ctx)
		if err != nil {
			return nil, verrors.LoadFailed("resolve embedder dimension", err)
		}
		db.dimension = dim
	}

	if err := db.store.CreateStorageDirectoryIfNeeded(ctx); err != nil {
		return nil, verrors.Storage("create storage directory", err)
	}

	return db, nil
}

// AddDocument embeds text and persists it under id (generated if empty),
// a convenience wrapper over AddDocuments (SPEC_FULL.md §4.5).
func (db *DB) AddDocument(ctx context.Context, text string, id string) (string, error) {
	ids := []string{}
	if id != "" {
		ids = []string{id}
	}
	added, err := db.AddDocuments(ctx, []string{text}, ids)
	if err != nil {
		return "", err
	}
	return added[0], nil
}

// AddDocuments embeds texts in one batch, persists them, and notifies the
// search engine's index per document (SPEC_FULL.md §4.5). If ids is
// non-empty it must have the same length as texts; otherwise fresh UUIDs
// are generated.
func (db *DB) AddDocuments(ctx context.Context, texts []string, ids []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, verrors.InvalidInput("texts must be non-empty")
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, verrors.InvalidInput("text must contain at least one non-whitespace character")
		}
	}
	if len(ids) > 0 && len(ids) != len(texts) {
		return nil, verrors.InvalidInput("ids must have the same length as texts, got %d ids for %d texts", len(ids), len(texts))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	embeddings, err := db.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, verrors.LoadFailed("embed documents", err)
	}
	if len(embeddings) != len(texts) {
		return nil, verrors.InvalidInput("Embedder returned %d for %d", len(embeddings), len(texts))
	}

	now := time.Now()
	docs := make([]document.Document, len(texts))
	resultIDs := make([]string, len(texts))

	for i, text := range texts {
		if len(embeddings[i]) != db.dimension {
			return nil, verrors.DimensionMismatch(db.dimension, len(embeddings[i]))
		}
		normalized, err := vectormath.Normalize(embeddings[i])
		if err != nil {
			return nil, err
		}

		id := ""
		if len(ids) > 0 {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}

		docs[i] = document.Document{
			ID:        id,
			Text:      text,
			Embedding: normalized,
			CreatedAt: now,
		}
		resultIDs[i] = id
	}

	if err := db.store.SaveDocuments(ctx, docs); err != nil {
		return nil, verrors.Storage("save documents", err)
	}

	if indexer, ok := db.search.(Indexer); ok {
		for _, doc := range docs {
			if err := indexer.IndexDocument(ctx, doc.ID, doc.Text); err != nil {
				return nil, verrors.Storage("index document", err)
			}
		}
	}

	return resultIDs, nil
}

// Search resolves query with options defaulted from the DB's
// configuration when zero-valued, and routes to the configured Searcher
// (SPEC_FULL.md §4.5).
func (db *DB) Search(ctx context.Context, query searchquery.Query, opts searchquery.Options) ([]searchquery.Result, error) {
	if opts.NumResults == 0 {
		opts.NumResults = db.defaultNumResults
	}
	if opts.Threshold == nil {
		opts.Threshold = db.defaultThreshold
	}

	start := time.Now()
	results, err := db.search.Search(ctx, query, db.store, db.strategy, opts, db.dimension)
	db.recordQuery(query, results, time.Since(start))
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (db *DB) recordQuery(query searchquery.Query, results []searchquery.Result, latency time.Duration) {
	if db.metrics == nil {
		return
	}

	kind := telemetry.QueryKindVector
	queryText := query.Text
	if query.Kind == searchquery.QueryVector {
		queryText = ""
	} else if _, ok := db.search.(Indexer); ok {
		kind = telemetry.QueryKindHybrid
	} else {
		kind = telemetry.QueryKindText
	}

	db.metrics.Record(telemetry.QueryEvent{
		Query:       queryText,
		Kind:        kind,
		ResultCount: len(results),
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

// UpdateDocument re-embeds newText for id, preserving the original
// CreatedAt, and notifies the search engine via RemoveDocument then
// IndexDocument (SPEC_FULL.md §4.5). Fails DocumentNotFound if id does
// not exist.
func (db *DB) UpdateDocument(ctx context.Context, id, newText string) error {
	if strings.TrimSpace(newText) == "" {
		return verrors.InvalidInput("text must contain at least one non-whitespace character")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	existing, err := db.loadOne(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return verrors.NotFound(id)
	}

	embedding, err := db.embed.Embed(ctx, newText)
	if err != nil {
		return verrors.LoadFailed("embed updated document", err)
	}
	if len(embedding) != db.dimension {
		return verrors.DimensionMismatch(db.dimension, len(embedding))
	}
	normalized, err := vectormath.Normalize(embedding)
	if err != nil {
		return err
	}

	updated := existing.WithText(newText, normalized)
	if err := db.store.UpdateDocument(ctx, updated); err != nil {
		return verrors.Storage("update document", err)
	}

	if indexer, ok := db.search.(Indexer); ok {
		_ = indexer.RemoveDocument(ctx, id)
		if err := indexer.IndexDocument(ctx, id, newText); err != nil {
			return verrors.Storage("reindex updated document", err)
		}
	}

	return nil
}

// loadOne fetches a single document by id, preferring LoadDocumentsByID on
// indexed storage and falling back to filtering a full load, per
// SPEC_FULL.md §4.5's updateDocument description. Returns (nil, nil) if
// absent.
func (db *DB) loadOne(ctx context.Context, id string) (*document.Document, error) {
	if indexed, ok := db.store.(storage.Indexed); ok {
		byID, err := indexed.LoadDocumentsByID(ctx, []string{id})
		if err != nil {
			return nil, verrors.LoadFailed("load document by id", err)
		}
		if doc, ok := byID[id]; ok {
			return &doc, nil
		}
		return nil, nil
	}

	docs, err := db.store.LoadDocuments(ctx)
	if err != nil {
		return nil, verrors.LoadFailed("load documents", err)
	}
	for _, d := range docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

// DeleteDocuments removes each id from storage and the search engine's
// index. Idempotent: an absent id is not an error (SPEC_FULL.md §4.5).
func (db *DB) DeleteDocuments(ctx context.Context, ids []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	indexer, hasIndexer := db.search.(Indexer)

	for _, id := range ids {
		if err := db.store.DeleteDocument(ctx, id); err != nil {
			return verrors.Storage("delete document", err)
		}
		if hasIndexer {
			if err := indexer.RemoveDocument(ctx, id); err != nil {
				return verrors.Storage("remove document from index", err)
			}
		}
	}

	return nil
}

// Reset clears every document, equivalent to DeleteDocuments(all current
// ids). If storage exposes storage.BulkResettable, that fast path is used
// instead of first enumerating every id (SPEC_FULL.md §4.5, resolving
// Open Question (c) from §9) — but only when the search engine has no
// separate text index to clear: storage.BulkResettable only resets the
// storage's own (vector) index, not a pkg/hybrid.Engine's bleve index, so
// using it while an Indexer is configured would leave deleted documents
// searchable via text queries.
func (db *DB) Reset(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	indexer, hasIndexer := db.search.(Indexer)

	if !hasIndexer {
		if bulk, ok := db.store.(storage.BulkResettable); ok {
			if err := bulk.ResetAll(ctx); err != nil {
				return verrors.Storage("reset storage", err)
			}
			return nil
		}
	}

	docs, err := db.store.LoadDocuments(ctx)
	if err != nil {
		return verrors.LoadFailed("load documents", err)
	}

	for _, d := range docs {
		if err := db.store.DeleteDocument(ctx, d.ID); err != nil {
			return verrors.Storage("delete document", err)
		}
		if hasIndexer {
			if err := indexer.RemoveDocument(ctx, d.ID); err != nil {
				return verrors.Storage("remove document from index", err)
			}
		}
	}

	return nil
}

// DocumentCount returns the number of persisted documents.
func (db *DB) DocumentCount(ctx context.Context) (int, error) {
	count, err := db.store.GetTotalDocumentCount(ctx)
	if err != nil {
		return 0, verrors.Storage("get document count", err)
	}
	return count, nil
}

// GetAllDocuments returns every persisted document.
func (db *DB) GetAllDocuments(ctx context.Context) ([]document.Document, error) {
	docs, err := db.store.LoadDocuments(ctx)
	if err != nil {
		return nil, verrors.LoadFailed("load documents", err)
	}
	return docs, nil
}

// Close releases resources held by the DB's telemetry collector, if any.
func (db *DB) Close() error {
	if db.metrics != nil {
		return db.metrics.Close()
	}
	return nil
}
