package vectura

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecturakit/vectura/internal/document"
	"github.com/vecturakit/vectura/internal/searchquery"
	"github.com/vecturakit/vectura/internal/storage"
	"github.com/vecturakit/vectura/internal/textengine"
	"github.com/vecturakit/vectura/internal/verrors"
	"github.com/vecturakit/vectura/pkg/hybrid"
	"github.com/vecturakit/vectura/pkg/vecsearch"
)

// fakeEmbedder is a fixed-dimension embedder returning a caller-supplied
// vector for every text, letting tests pin exact embeddings instead of
// depending on a hash function's output.
type fakeEmbedder struct {
	dim     int
	vectors map[string][]float32
	// batchOverride, if non-nil, is returned verbatim by EmbedBatch
	// regardless of input length (used to simulate a misbehaving embedder).
	batchOverride [][]float32
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, vectors: make(map[string][]float32)}
}

func (f *fakeEmbedder) set(text string, v []float32) {
	f.vectors[text] = v
}

func (f *fakeEmbedder) Dimensions(ctx context.Context) (int, error) {
	return f.dim, nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, f.dim)
	v[0] = 1
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.batchOverride != nil {
		return f.batchOverride, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestDB(t *testing.T, emb *fakeEmbedder, store storage.Basic) *DB {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
	}
	db, err := Open(context.Background(),
		WithStorage(store),
		WithEmbedder(emb),
		WithSearcher(vecsearch.New(emb)),
		WithMemoryStrategy(searchquery.FullMemoryStrategy()),
	)
	require.NoError(t, err)
	return db
}

func TestAddDocumentSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	emb.set("hello", []float32{1, 0, 0})
	db := newTestDB(t, emb, nil)

	id, err := db.AddDocument(ctx, "hello", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	results, err := db.Search(ctx, searchquery.TextQuery("hello"), searchquery.Options{NumResults: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestUpdateDocumentPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	emb.set("v1", []float32{1, 0, 0})
	emb.set("v2", []float32{0, 1, 0})
	db := newTestDB(t, emb, nil)

	id, err := db.AddDocument(ctx, "v1", "doc-1")
	require.NoError(t, err)

	before, err := db.GetAllDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)
	originalCreatedAt := before[0].CreatedAt

	require.NoError(t, db.UpdateDocument(ctx, id, "v2"))

	after, err := db.GetAllDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, originalCreatedAt, after[0].CreatedAt)
	assert.Equal(t, "v2", after[0].Text)
}

func TestUpdateDocumentNotFound(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	err := db.UpdateDocument(ctx, "missing", "new text")
	require.Error(t, err)
	assert.True(t, verrors.IsKind(err, verrors.KindDocumentNotFound))
}

func TestDeleteDocumentsIdempotent(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	id, err := db.AddDocument(ctx, "hello", "")
	require.NoError(t, err)

	require.NoError(t, db.DeleteDocuments(ctx, []string{id}))
	require.NoError(t, db.DeleteDocuments(ctx, []string{id}))

	count, err := db.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAddDocumentDuplicateIDOverwrites(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	_, err := db.AddDocument(ctx, "first", "dup")
	require.NoError(t, err)
	_, err = db.AddDocument(ctx, "second", "dup")
	require.NoError(t, err)

	docs, err := db.GetAllDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "second", docs[0].Text)
}

func TestSearchDimensionGuard(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	_, err := db.Search(ctx, searchquery.VectorQuery([]float32{1, 0}), searchquery.Options{NumResults: 1})
	require.Error(t, err)
	assert.True(t, verrors.IsKind(err, verrors.KindDimensionMismatch))
}

func TestAddDocumentsRejectsEmptyBatch(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	_, err := db.AddDocuments(ctx, nil, nil)
	require.Error(t, err)
	assert.True(t, verrors.IsKind(err, verrors.KindInvalidInput))
}

func TestAddDocumentsRejectsWhitespaceOnlyText(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	_, err := db.AddDocuments(ctx, []string{"   "}, nil)
	require.Error(t, err)
	assert.True(t, verrors.IsKind(err, verrors.KindInvalidInput))
}

func TestAddDocumentsRejectsMismatchedIDCount(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	db := newTestDB(t, emb, nil)

	_, err := db.AddDocuments(ctx, []string{"a", "b"}, []string{"only-one"})
	require.Error(t, err)
	assert.True(t, verrors.IsKind(err, verrors.KindInvalidInput))
}

func TestAddDocumentsRejectsEmbedderCountMismatch(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	emb.batchOverride = [][]float32{{1, 0, 0}} // one embedding for two texts
	db := newTestDB(t, emb, nil)

	_, err := db.AddDocuments(ctx, []string{"a", "b"}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Embedder returned"))
}

// spyStore wraps a *storage.FileStore directly (not the storage.Basic
// interface: embedding the interface would only promote methods declared
// on storage.Basic's own method set, and storage.BulkResettable is not
// one of them, so a *spyStore would silently fail the type assertion in
// Reset and this test would never exercise the fast path it claims to).
// Recording whether LoadDocuments was called verifies Reset's bulk fast
// path bypasses it entirely.
type spyStore struct {
	*storage.FileStore
	loadDocumentsCalled bool
}

func (s *spyStore) LoadDocuments(ctx context.Context) ([]document.Document, error) {
	s.loadDocumentsCalled = true
	return s.FileStore.LoadDocuments(ctx)
}

func TestResetUsesBulkFastPathWithoutLoadingDocuments(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	dir := t.TempDir()
	fileStore, err := storage.NewFileStore(filepath.Join(dir, "db"))
	require.NoError(t, err)

	spy := &spyStore{FileStore: fileStore}
	db := newTestDB(t, emb, spy)

	for i := 0; i < 20; i++ {
		_, err := db.AddDocument(ctx, "doc text", "")
		require.NoError(t, err)
	}

	require.NoError(t, db.Reset(ctx))

	assert.False(t, spy.loadDocumentsCalled, "Reset should use the BulkResettable fast path, not LoadDocuments")

	count, err := db.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// fakeTextEngine tracks indexed text in memory and reports every
// currently-indexed id as a match, regardless of query, so tests can
// assert on what remains indexed after a mutation without depending on
// real BM25 ranking.
type fakeTextEngine struct {
	docs map[string]string
}

func newFakeTextEngine() *fakeTextEngine {
	return &fakeTextEngine{docs: map[string]string{}}
}

func (f *fakeTextEngine) Search(ctx context.Context, text string, numResults int) ([]textengine.Result, error) {
	results := make([]textengine.Result, 0, len(f.docs))
	for id := range f.docs {
		results = append(results, textengine.Result{ID: id, Score: 1.0})
	}
	if len(results) > numResults {
		results = results[:numResults]
	}
	return results, nil
}

func (f *fakeTextEngine) IndexDocument(ctx context.Context, id, text string) error {
	f.docs[id] = text
	return nil
}

func (f *fakeTextEngine) RemoveDocument(ctx context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeTextEngine) Close() error { return nil }

// TestResetWithIndexerClearsTextIndexToo guards against Reset's bulk
// fast path (storage.BulkResettable) silently skipping index maintenance:
// storage.FileStore.ResetAll only clears storage's own vector index, not
// a hybrid engine's separate text index, so Reset must fall back to the
// per-id path (which does call Indexer.RemoveDocument) whenever the
// configured Searcher is also an Indexer.
func TestResetWithIndexerClearsTextIndexToo(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(3)
	dir := t.TempDir()
	fileStore, err := storage.NewFileStore(filepath.Join(dir, "db"))
	require.NoError(t, err)

	textEngine := newFakeTextEngine()
	searcher := hybrid.New(vecsearch.New(emb), textEngine, emb, hybrid.DefaultConfig())

	db, err := Open(ctx,
		WithStorage(fileStore),
		WithEmbedder(emb),
		WithSearcher(searcher),
		WithMemoryStrategy(searchquery.FullMemoryStrategy()),
	)
	require.NoError(t, err)

	_, err = db.AddDocument(ctx, "doc text", "")
	require.NoError(t, err)

	require.NoError(t, db.Reset(ctx))

	results, err := db.Search(ctx, searchquery.TextQuery("doc"), searchquery.Options{NumResults: 10})
	require.NoError(t, err)
	assert.Empty(t, results, "Reset must clear the text index too, not just storage's vector index")
}

func TestIndexedStorePersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	emb := newFakeEmbedder(3)
	emb.set("alpha", []float32{1, 0, 0})
	emb.set("beta", []float32{0, 1, 0})

	store1, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	db1 := newTestDB(t, emb, store1)

	_, err = db1.AddDocument(ctx, "alpha", "alpha-id")
	require.NoError(t, err)
	_, err = db1.AddDocument(ctx, "beta", "beta-id")
	require.NoError(t, err)

	store2, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	indexed, ok := storage.Basic(store2).(storage.Indexed)
	require.True(t, ok)

	ids, ok, err := indexed.SearchVectorCandidates(ctx, []float32{1, 0, 0}, 1, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, ids, "alpha-id")
}
