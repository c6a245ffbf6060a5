package vecsearch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vecturakit/vectura/internal/document"
	"github.com/vecturakit/vectura/internal/embedder"
	"github.com/vecturakit/vectura/internal/searchquery"
	"github.com/vecturakit/vectura/internal/storage"
)

func seedStore(t *testing.T, s storage.Basic, docs ...document.Document) {
	t.Helper()
	ctx := context.Background()
	for _, d := range docs {
		require.NoError(t, s.SaveDocument(ctx, d))
	}
}

func TestSearchSingleDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, document.Document{ID: "d1", Text: "hello", Embedding: []float32{1, 0, 0}, CreatedAt: time.Now()})

	e := New(embedder.NewStatic())
	results, err := e.Search(ctx, searchquery.VectorQuery([]float32{1, 0, 0}), store, searchquery.FullMemoryStrategy(), searchquery.Options{NumResults: 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestSearchThresholdFilter(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store,
		document.Document{ID: "a", Embedding: []float32{1, 0}},
		document.Document{ID: "b", Embedding: []float32{0.8, 0.6}},
		document.Document{ID: "c", Embedding: []float32{0, 1}},
	)

	e := New(embedder.NewStatic())
	threshold := float32(0.9)
	results, err := e.Search(ctx, searchquery.VectorQuery([]float32{1, 0}), store, searchquery.FullMemoryStrategy(), searchquery.Options{NumResults: 3, Threshold: &threshold}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestSearchDimensionGuard(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	e := New(embedder.NewStatic())
	_, err := e.Search(ctx, searchquery.VectorQuery([]float32{1, 0}), store, searchquery.FullMemoryStrategy(), searchquery.Options{NumResults: 1}, 3)
	require.Error(t, err)
}

func TestSearchSortedDescendingAndBounded(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store,
		document.Document{ID: "a", Embedding: []float32{1, 0}},
		document.Document{ID: "b", Embedding: []float32{0.6, 0.8}},
		document.Document{ID: "c", Embedding: []float32{0, 1}},
	)

	e := New(embedder.NewStatic())
	results, err := e.Search(ctx, searchquery.VectorQuery([]float32{1, 0}), store, searchquery.FullMemoryStrategy(), searchquery.Options{NumResults: 2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

// spyIndexedStore wraps a FileStore-backed indexed provider and records
// whether LoadDocuments (the full-load path) was ever called, so the
// indexed-candidate-path test can assert it was NOT invoked.
type spyIndexedStore struct {
	storage.Indexed
	loadDocumentsCalled bool
	candidateIDs        []string
	candidateOK         bool
}

func (s *spyIndexedStore) LoadDocuments(ctx context.Context) ([]document.Document, error) {
	s.loadDocumentsCalled = true
	return s.Indexed.LoadDocuments(ctx)
}

func (s *spyIndexedStore) SearchVectorCandidates(ctx context.Context, queryEmbedding []float32, topK, prefilterSize int) ([]string, bool, error) {
	return s.candidateIDs, s.candidateOK, nil
}

func TestSearchIndexedCandidatePath(t *testing.T) {
	ctx := context.Background()
	base, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	seedStore(t, base,
		document.Document{ID: "d1", Embedding: []float32{1, 0}},
		document.Document{ID: "d2", Embedding: []float32{0, 1}},
	)

	spy := &spyIndexedStore{Indexed: base, candidateIDs: []string{"d2"}, candidateOK: true}

	e := New(embedder.NewStatic())
	strategy := searchquery.IndexedStrategy(2, 10, 1)
	results, err := e.Search(ctx, searchquery.VectorQuery([]float32{0, 1}), spy, strategy, searchquery.Options{NumResults: 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "d2", results[0].ID)
	require.False(t, spy.loadDocumentsCalled)
}

func TestSearchIndexedFallback(t *testing.T) {
	ctx := context.Background()
	base, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	seedStore(t, base,
		document.Document{ID: "d1", Embedding: []float32{1, 0}},
		document.Document{ID: "d2", Embedding: []float32{0, 1}},
	)

	spy := &spyIndexedStore{Indexed: base, candidateOK: false}

	e := New(embedder.NewStatic())
	strategy := searchquery.IndexedStrategy(2, 10, 1)
	results, err := e.Search(ctx, searchquery.VectorQuery([]float32{1, 0}), spy, strategy, searchquery.Options{NumResults: 1}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.True(t, spy.loadDocumentsCalled)
}

func TestSearchAutomaticStrategyBelowThreshold(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, document.Document{ID: "a", Embedding: []float32{1, 0}})

	e := New(embedder.NewStatic())
	strategy := searchquery.AutomaticStrategy(100, 2, 10, 1)
	results, err := e.Search(ctx, searchquery.VectorQuery([]float32{1, 0}), store, strategy, searchquery.Options{NumResults: 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
