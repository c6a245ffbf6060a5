package storage

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex is an optional ANN shortlist over a FileStore's documents,
// used to satisfy Indexed.SearchVectorCandidates. It is grounded on the
// teacher's internal/store/hnsw.go HNSWStore: a coder/hnsw graph keyed by
// an internal uint64, with a string-id mapping persisted alongside it via
// gob so ids survive a save/reload cycle.
type vectorIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// vectorIndexMeta is the gob-encoded sidecar persisting id mappings.
type vectorIndexMeta struct {
	IDMap   map[string]uint64
	NextKey uint64
}

func newVectorIndex() *vectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &vectorIndex{
		graph:  graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// upsert adds or replaces the vector for id. Existing entries are
// lazily deleted (mapping removed, node orphaned in the graph) rather than
// removed from the graph, matching the teacher's workaround for coder/hnsw
// not tolerating deletion of its last node.
func (v *vectorIndex) upsert(id string, embedding []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if oldKey, exists := v.idMap[id]; exists {
		delete(v.keyMap, oldKey)
		delete(v.idMap, id)
	}

	key := v.nextKey
	v.nextKey++

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	v.graph.Add(hnsw.MakeNode(key, vec))
	v.idMap[id] = key
	v.keyMap[key] = id
}

func (v *vectorIndex) delete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, exists := v.idMap[id]; exists {
		delete(v.keyMap, key)
		delete(v.idMap, id)
	}
}

func (v *vectorIndex) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	v.graph = graph
	v.idMap = make(map[string]uint64)
	v.keyMap = make(map[uint64]string)
	v.nextKey = 0
}

// search returns up to k candidate ids in descending approximate-similarity
// order. Returns an empty (non-nil) slice if the index has no vectors.
func (v *vectorIndex) search(query []float32, k int) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph.Len() == 0 {
		return []string{}
	}

	nodes := v.graph.Search(query, k)
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if id, ok := v.keyMap[node.Key]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// save persists the graph (path) and id mappings (path+".meta").
func (v *vectorIndex) save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := v.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}

	metaTmp := path + ".meta.tmp"
	mf, err := os.Create(metaTmp)
	if err != nil {
		return fmt.Errorf("create index metadata file: %w", err)
	}
	meta := vectorIndexMeta{IDMap: v.idMap, NextKey: v.nextKey}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		mf.Close()
		os.Remove(metaTmp)
		return fmt.Errorf("encode index metadata: %w", err)
	}
	if err := mf.Close(); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("close index metadata file: %w", err)
	}
	return os.Rename(metaTmp, path+".meta")
}

// load restores the graph and id mappings from path. A missing path is not
// an error: the index simply starts empty (fresh store).
func (v *vectorIndex) load(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	metaFile, err := os.Open(path + ".meta")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open index metadata: %w", err)
	}
	defer metaFile.Close()

	var meta vectorIndexMeta
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("decode index metadata: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	if err := graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	v.graph = graph
	v.idMap = meta.IDMap
	v.nextKey = meta.NextKey
	v.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		v.keyMap[key] = id
	}
	return nil
}
