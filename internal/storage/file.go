// File storage provider: one JSON file per document, with an in-process
// LRU cache and an optional HNSW candidate index, grounded on the
// teacher's internal/store/hnsw.go (atomic save via temp+rename,
// gob-encoded sidecar metadata) and internal/embed/lock.go (gofrs/flock
// for cross-process coordination).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vecturakit/vectura/internal/document"
	"github.com/vecturakit/vectura/internal/verrors"
)

const (
	// DefaultCacheSize bounds the FileStore's in-process document cache.
	DefaultCacheSize = 1024

	vectorIndexFileName = "vectors.hnsw"
	lockFileName         = ".lock"
)

// FileStore persists one JSON file per document under root
// (<configured-root>/<database-name>/, per SPEC_FULL.md §6), cached by an
// LRU of recently touched documents. The cache is write-through: every
// mutation updates both disk and cache before returning, resolving Open
// Question (a) from spec.md §9 in favor of the spec's own recommendation.
type FileStore struct {
	root  string
	cache *lru.Cache[string, document.Document]
	index *vectorIndex

	fileLock *flock.Flock

	mu    sync.RWMutex
	count atomic.Int64
}

// NewFileStore creates a FileStore rooted at root, creating the directory
// (mode 0o700) if it does not already exist, and restoring any
// previously-saved candidate index found there.
func NewFileStore(root string) (*FileStore, error) {
	cache, err := lru.New[string, document.Document](DefaultCacheSize)
	if err != nil {
		return nil, verrors.Storage("create document cache", err)
	}

	s := &FileStore{
		root:     root,
		cache:    cache,
		index:    newVectorIndex(),
		fileLock: flock.New(filepath.Join(root, lockFileName)),
	}

	if err := s.CreateStorageDirectoryIfNeeded(context.Background()); err != nil {
		return nil, err
	}

	if err := s.index.load(filepath.Join(root, vectorIndexFileName)); err != nil {
		return nil, verrors.Storage("load candidate index", err)
	}

	n, err := s.countFiles()
	if err != nil {
		return nil, verrors.Storage("count documents", err)
	}
	s.count.Store(int64(n))

	return s, nil
}

// CreateStorageDirectoryIfNeeded is idempotent: it creates root (and any
// missing parents) with owner-only permissions.
func (s *FileStore) CreateStorageDirectoryIfNeeded(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return verrors.Storage("create storage directory", err)
	}
	return nil
}

func (s *FileStore) docPath(id string) string {
	return filepath.Join(s.root, id+".json")
}

func (s *FileStore) countFiles() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// fileDocument is the on-disk JSON shape named in SPEC_FULL.md §6.
type fileDocument struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"createdAt"`
}

func toFileDocument(d document.Document) fileDocument {
	return fileDocument{ID: d.ID, Text: d.Text, Embedding: d.Embedding, CreatedAt: d.CreatedAt}
}

func fromFileDocument(fd fileDocument) document.Document {
	return document.Document{ID: fd.ID, Text: fd.Text, Embedding: fd.Embedding, CreatedAt: fd.CreatedAt}
}

// writeDocumentFile writes doc atomically (temp file + rename), matching
// the teacher's HNSWStore.Save pattern.
func (s *FileStore) writeDocumentFile(doc document.Document) error {
	data, err := json.Marshal(toFileDocument(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	path := s.docPath(doc.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp document file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename document file: %w", err)
	}
	return nil
}

func (s *FileStore) readDocumentFile(id string) (document.Document, bool, error) {
	data, err := os.ReadFile(s.docPath(id))
	if os.IsNotExist(err) {
		return document.Document{}, false, nil
	}
	if err != nil {
		return document.Document{}, false, err
	}

	var fd fileDocument
	if err := json.Unmarshal(data, &fd); err != nil {
		return document.Document{}, false, err
	}
	return fromFileDocument(fd), true, nil
}

// LoadDocuments reads every document from disk, repopulating the cache as
// it goes. Disk is always the source of truth for a full load: the cache
// alone cannot be trusted to hold every document once it has evicted
// entries past DefaultCacheSize.
func (s *FileStore) LoadDocuments(ctx context.Context) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, verrors.LoadFailed("read storage directory", err)
	}

	docs := make([]document.Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		doc, ok, err := s.readDocumentFile(id)
		if err != nil {
			return nil, verrors.LoadFailed(fmt.Sprintf("read document %s", id), err)
		}
		if !ok {
			continue
		}
		s.cache.Add(id, doc)
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadDocumentsPage returns a page of documents ordered by filename, which
// is stable across calls as long as the document set is unchanged.
func (s *FileStore) LoadDocumentsPage(ctx context.Context, offset, limit int) ([]document.Document, error) {
	all, err := s.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []document.Document{}, nil
	}
	end := offset + limit
	if end > len(all) || limit <= 0 {
		end = len(all)
	}
	return all[offset:end], nil
}

// LoadDocumentsByID returns a partial map; missing ids are simply absent,
// not an error, per SPEC_FULL.md §4.2.
func (s *FileStore) LoadDocumentsByID(ctx context.Context, ids []string) (map[string]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]document.Document, len(ids))
	for _, id := range ids {
		if doc, ok := s.cache.Get(id); ok {
			out[id] = doc
			continue
		}
		doc, ok, err := s.readDocumentFile(id)
		if err != nil {
			return nil, verrors.LoadFailed(fmt.Sprintf("read document %s", id), err)
		}
		if !ok {
			continue
		}
		s.cache.Add(id, doc)
		out[id] = doc
	}
	return out, nil
}

// SaveDocument upserts a single document.
func (s *FileStore) SaveDocument(ctx context.Context, doc document.Document) error {
	return s.SaveDocuments(ctx, []document.Document{doc})
}

// SaveDocuments upserts a batch of documents under the store's directory
// lock, so that concurrent FileStore instances (same directory, different
// processes) serialize their writes (SPEC_FULL.md §5).
func (s *FileStore) SaveDocuments(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if err := s.fileLock.Lock(); err != nil {
		return verrors.Storage("acquire storage lock", err)
	}
	defer s.fileLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, doc := range docs {
		_, existed, err := s.readDocumentFile(doc.ID)
		if err != nil {
			return verrors.Storage(fmt.Sprintf("check existing document %s", doc.ID), err)
		}

		if err := s.writeDocumentFile(doc); err != nil {
			return verrors.Storage(fmt.Sprintf("write document %s", doc.ID), err)
		}
		s.cache.Add(doc.ID, doc)
		s.index.upsert(doc.ID, doc.Embedding)

		if !existed {
			added++
		}
	}
	s.count.Add(int64(added))

	return s.index.save(filepath.Join(s.root, vectorIndexFileName))
}

// DeleteDocument removes the document's file and cache/index entries.
// Idempotent: succeeds whether or not id existed.
func (s *FileStore) DeleteDocument(ctx context.Context, id string) error {
	if err := s.fileLock.Lock(); err != nil {
		return verrors.Storage("acquire storage lock", err)
	}
	defer s.fileLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.docPath(id)
	_, err := os.Stat(path)
	existed := err == nil

	if existed {
		if err := os.Remove(path); err != nil {
			return verrors.Storage(fmt.Sprintf("delete document %s", id), err)
		}
		s.count.Add(-1)
	}

	s.cache.Remove(id)
	s.index.delete(id)

	return s.index.save(filepath.Join(s.root, vectorIndexFileName))
}

// UpdateDocument upserts doc, preserving id.
func (s *FileStore) UpdateDocument(ctx context.Context, doc document.Document) error {
	return s.SaveDocument(ctx, doc)
}

// GetTotalDocumentCount returns the cached document count, maintained
// incrementally rather than recomputed by listing the directory on every
// call (SPEC_FULL.md §4.2: "cheap; implementations MAY cache").
func (s *FileStore) GetTotalDocumentCount(ctx context.Context) (int, error) {
	return int(s.count.Load()), nil
}

// SearchVectorCandidates returns the HNSW index's shortlist for queryEmbedding.
// Always returns ok=true: the index is always present for a FileStore, even
// if empty.
func (s *FileStore) SearchVectorCandidates(ctx context.Context, queryEmbedding []float32, topK, prefilterSize int) ([]string, bool, error) {
	ids := s.index.search(queryEmbedding, prefilterSize)
	return ids, true, nil
}

// ResetAll removes every document file and clears the cache and index
// without requiring the caller to first enumerate ids, satisfying
// BulkResettable (SPEC_FULL.md §4.5, resolving Open Question (c)).
func (s *FileStore) ResetAll(ctx context.Context) error {
	if err := s.fileLock.Lock(); err != nil {
		return verrors.Storage("acquire storage lock", err)
	}
	defer s.fileLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.root); err != nil {
		return verrors.Storage("clear storage directory", err)
	}
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return verrors.Storage("recreate storage directory", err)
	}

	s.cache.Purge()
	s.index.reset()
	s.count.Store(0)

	return nil
}

var (
	_ Basic          = (*FileStore)(nil)
	_ Indexed        = (*FileStore)(nil)
	_ BulkResettable = (*FileStore)(nil)
)
