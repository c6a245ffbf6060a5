// Package searchquery defines the query, options and result types shared
// by pkg/vecsearch and pkg/hybrid (SPEC_FULL.md §3). Go has no tagged
// unions, so each variant type here is a struct with a Kind discriminant,
// the idiom the teacher's internal/search package uses for query-kind
// dispatch.
package searchquery

import (
	"time"

	"github.com/vecturakit/vectura/internal/verrors"
)

// QueryKind discriminates a Query's payload.
type QueryKind int

const (
	QueryVector QueryKind = iota
	QueryText
)

// Query is a search query: either an already-embedded vector or raw text
// to be embedded by the configured embedder.
type Query struct {
	Kind   QueryKind
	Vector []float32
	Text   string
}

// VectorQuery builds a Query carrying a pre-computed vector.
func VectorQuery(v []float32) Query {
	return Query{Kind: QueryVector, Vector: v}
}

// TextQuery builds a Query carrying raw text.
func TextQuery(s string) Query {
	return Query{Kind: QueryText, Text: s}
}

// Options are the per-search parameters (SPEC_FULL.md §3 Search Options).
type Options struct {
	NumResults int
	Threshold  *float32 // nil means "no threshold"
}

// Validate enforces numResults >= 1.
func (o Options) Validate() error {
	if o.NumResults <= 0 {
		return verrors.InvalidInput("numResults must be >= 1, got %d", o.NumResults)
	}
	return nil
}

// Result is a single ranked search hit.
type Result struct {
	ID        string
	Text      string
	Score     float32
	CreatedAt time.Time
}

// StrategyKind discriminates a MemoryStrategy's payload.
type StrategyKind int

const (
	StrategyFullMemory StrategyKind = iota
	StrategyIndexed
	StrategyAutomatic
)

// MemoryStrategy selects how the vector search engine locates candidates
// (SPEC_FULL.md §3 Memory Strategy).
type MemoryStrategy struct {
	Kind StrategyKind

	// Used by Indexed and Automatic.
	CandidateMultiplier  int
	BatchSize            int
	MaxConcurrentBatches int

	// Used by Automatic only.
	Threshold int
}

// FullMemoryStrategy always brute-forces.
func FullMemoryStrategy() MemoryStrategy {
	return MemoryStrategy{Kind: StrategyFullMemory}
}

// IndexedStrategy always delegates candidate selection to storage.
func IndexedStrategy(candidateMultiplier, batchSize, maxConcurrentBatches int) MemoryStrategy {
	return MemoryStrategy{
		Kind:                 StrategyIndexed,
		CandidateMultiplier:  candidateMultiplier,
		BatchSize:            batchSize,
		MaxConcurrentBatches: maxConcurrentBatches,
	}
}

// AutomaticStrategy uses the indexed path once storage holds at least
// threshold documents.
func AutomaticStrategy(threshold, candidateMultiplier, batchSize, maxConcurrentBatches int) MemoryStrategy {
	return MemoryStrategy{
		Kind:                 StrategyAutomatic,
		Threshold:            threshold,
		CandidateMultiplier:  candidateMultiplier,
		BatchSize:            batchSize,
		MaxConcurrentBatches: maxConcurrentBatches,
	}
}

// Validate enforces the constraints named in SPEC_FULL.md §3.
func (m MemoryStrategy) Validate() error {
	switch m.Kind {
	case StrategyFullMemory:
		return nil
	case StrategyIndexed, StrategyAutomatic:
		if m.CandidateMultiplier < 1 {
			return verrors.InvalidInput("candidateMultiplier must be >= 1, got %d", m.CandidateMultiplier)
		}
		if m.BatchSize < 1 {
			return verrors.InvalidInput("batchSize must be >= 1, got %d", m.BatchSize)
		}
		if m.MaxConcurrentBatches < 1 {
			return verrors.InvalidInput("maxConcurrentBatches must be >= 1, got %d", m.MaxConcurrentBatches)
		}
		if m.Kind == StrategyAutomatic && m.Threshold < 0 {
			return verrors.InvalidInput("threshold must be >= 0, got %d", m.Threshold)
		}
		return nil
	default:
		return verrors.InvalidInput("unknown memory strategy kind %d", m.Kind)
	}
}
