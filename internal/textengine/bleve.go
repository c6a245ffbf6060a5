package textengine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/vecturakit/vectura/internal/verrors"
)

// contentDocument is the document shape indexed into Bleve.
type contentDocument struct {
	Content string `json:"content"`
}

// Bleve is a BM25 text engine backed by blevesearch/bleve, grounded on
// the teacher's BleveBM25Index. It uses Bleve's default analyzer rather
// than the teacher's custom code tokenizer: Vectura documents are
// arbitrary prose, not source code.
type Bleve struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// NewBleve opens (or creates) a Bleve index at path. An empty path
// creates an in-memory index.
func NewBleve(path string) (*Bleve, error) {
	mapping := bleve.NewIndexMapping()

	var idx bleve.Index
	var err error

	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o700); mkErr != nil {
			return nil, verrors.Storage("create text index directory", mkErr)
		}

		if corruptErr := validateIndexIntegrity(path); corruptErr != nil {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, verrors.Storage("clear corrupted text index", rmErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		} else if err != nil && isCorruptionError(err) {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, verrors.Storage("clear corrupted text index", rmErr)
			}
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, verrors.Storage("open text index", err)
	}

	return &Bleve{index: idx, path: path}, nil
}

// validateIndexIntegrity detects an index left in a half-written state by
// a prior crash, matching the teacher's BUG-049 recovery path.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// IndexDocument adds or replaces the indexed text for id.
func (b *Bleve) IndexDocument(ctx context.Context, id, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Index(id, contentDocument{Content: text}); err != nil {
		return verrors.Storage(fmt.Sprintf("index document %s", id), err)
	}
	return nil
}

// RemoveDocument removes id from the index. Idempotent.
func (b *Bleve) RemoveDocument(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Delete(id); err != nil {
		return verrors.Storage(fmt.Sprintf("delete document %s", id), err)
	}
	return nil
}

// Search returns up to numResults BM25 matches, highest score first.
func (b *Bleve) Search(ctx context.Context, text string, numResults int) ([]Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if strings.TrimSpace(text) == "" {
		return []Result{}, nil
	}

	query := bleve.NewMatchQuery(text)
	query.SetField("content")

	req := bleve.NewSearchRequest(query)
	req.Size = numResults

	resp, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, verrors.Storage("text search", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{ID: hit.ID, Score: hit.Score})
	}
	return results, nil
}

// Close releases the underlying Bleve index.
func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

var _ Engine = (*Bleve)(nil)
