// Package telemetry records local query pattern metrics (latency, query
// kind, zero-result queries, top terms) for search tuning. Nothing is
// reported externally. Grounded on the teacher's internal/telemetry
// package, trimmed of its repetition/embedding-similarity tracking
// (no analogue in Vectura's search surface) and its per-project MLX
// thermal context.
package telemetry

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryKind classifies a search query for telemetry purposes, mirroring
// searchquery.QueryKind plus a "hybrid" variant for fused search.
type QueryKind string

const (
	QueryKindVector QueryKind = "vector"
	QueryKindText   QueryKind = "text"
	QueryKindHybrid QueryKind = "hybrid"
)

// LatencyBucket is a histogram bucket for query latency.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is a single search query observation.
type QueryEvent struct {
	Query       string
	Kind        QueryKind
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add inserts an item, evicting the oldest if the buffer is full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current item count.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms lowercases and tokenizes a query, filtering terms shorter
// than 3 characters.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and its observed frequency.
type TermCount struct {
	Term  string
	Count int64
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	QueryKindCounts     map[QueryKind]int64
	TopTerms            []TermCount
	ZeroResultQueries   []string
	LatencyDistribution map[LatencyBucket]int64
	TotalQueries        int64
	ZeroResultCount     int64
	Since               time.Time
}

// ZeroResultPercentage returns the share of queries that returned zero
// results, in [0, 100].
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Store persists aggregated query metrics.
type Store interface {
	SaveQueryKindCounts(date string, counts map[QueryKind]int64) error
	GetQueryKindCounts(from, to string) (map[QueryKind]int64, error)
	UpsertTermCounts(terms map[string]int64) error
	GetTopTerms(limit int) ([]TermCount, error)
	AddZeroResultQuery(query string, timestamp time.Time) error
	GetZeroResultQueries(limit int) ([]string, error)
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)
	Close() error
}

// Config configures the metrics collector.
type Config struct {
	TopTermsCapacity    int
	ZeroResultsCapacity int
	FlushInterval       time.Duration // 0 disables auto-flush
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
		FlushInterval:       60 * time.Second,
	}
}

// Metrics collects query telemetry. Safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	queryKinds      map[QueryKind]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	store       Store
	config      Config
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// New creates a metrics collector. If store is nil, metrics are kept
// in memory only.
func New(store Store) *Metrics {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates a metrics collector with a custom configuration.
func NewWithConfig(store Store, cfg Config) *Metrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	m := &Metrics{
		queryKinds:  make(map[QueryKind]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:   make(map[LatencyBucket]int64),
		startTime:   time.Now(),
		store:       store,
		config:      cfg,
		stopCh:      make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

func (m *Metrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures metrics from a completed search query.
func (m *Metrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.queryKinds[event.Kind]++
	m.totalQueries++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}

	m.latencies[LatencyToBucket(event.Latency)]++
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kindCounts := make(map[QueryKind]int64, len(m.queryKinds))
	for k, v := range m.queryKinds {
		kindCounts[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	for i := 0; i < len(topTerms); i++ {
		for j := i + 1; j < len(topTerms); j++ {
			if topTerms[j].Count > topTerms[i].Count {
				topTerms[i], topTerms[j] = topTerms[j], topTerms[i]
			}
		}
	}

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		QueryKindCounts:     kindCounts,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		Since:               m.startTime,
	}
}

// Flush persists in-memory metrics to the store. A no-op if no store
// is configured.
func (m *Metrics) Flush() error {
	if m.store == nil {
		return nil
	}

	snapshot := m.Snapshot()
	today := time.Now().Format("2006-01-02")

	if err := m.store.SaveQueryKindCounts(today, snapshot.QueryKindCounts); err != nil {
		return err
	}

	termCounts := make(map[string]int64, len(snapshot.TopTerms))
	for _, tc := range snapshot.TopTerms {
		termCounts[tc.Term] = tc.Count
	}
	if err := m.store.UpsertTermCounts(termCounts); err != nil {
		return err
	}

	return m.store.SaveLatencyCounts(today, snapshot.LatencyDistribution)
}

// Close stops auto-flush, performs a final flush, and marks the
// collector closed.
func (m *Metrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	return m.Flush()
}
