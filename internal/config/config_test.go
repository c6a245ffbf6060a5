package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigReturnsDefaults(t *testing.T) {
	cfg := NewConfig("notes")
	require.NotNil(t, cfg)

	assert.Equal(t, "notes", cfg.Name)
	assert.Equal(t, "automatic", cfg.MemoryStrategy.Kind)
	assert.Equal(t, DefaultAutomaticThreshold, cfg.MemoryStrategy.Threshold)
	assert.Equal(t, DefaultCandidateMultiplier, cfg.MemoryStrategy.CandidateMultiplier)
	assert.Equal(t, DefaultBatchSize, cfg.MemoryStrategy.BatchSize)
	assert.Equal(t, DefaultMaxConcurrentBatches, cfg.MemoryStrategy.MaxConcurrentBatches)

	assert.Equal(t, DefaultNumResults, cfg.SearchOptions.DefaultNumResults)
	assert.Equal(t, float32(DefaultHybridWeight), cfg.SearchOptions.HybridWeight)
	assert.Equal(t, float32(DefaultBM25NormalizationFactor), cfg.SearchOptions.BM25NormalizationFactor)
	assert.Equal(t, float32(DefaultK1), cfg.SearchOptions.K1)
	assert.Equal(t, float32(DefaultB), cfg.SearchOptions.B)
	assert.Nil(t, cfg.SearchOptions.MinThreshold)
}

func TestMemoryStrategyConfigResolve(t *testing.T) {
	full := MemoryStrategyConfig{Kind: "full_memory"}
	strategy, err := full.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 0, int(strategy.Kind)) // StrategyFullMemory == 0

	indexed := MemoryStrategyConfig{Kind: "indexed", CandidateMultiplier: 4, BatchSize: 32, MaxConcurrentBatches: 2}
	strategy, err = indexed.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 4, strategy.CandidateMultiplier)
	assert.Equal(t, 32, strategy.BatchSize)

	_, err = MemoryStrategyConfig{Kind: "bogus"}.Resolve()
	require.Error(t, err)
}

func TestLoadAppliesFileOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "name: notes\ndimension: 384\nsearch_options:\n  hybrid_weight: 0.8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectura.yaml"), []byte(yamlContent), 0o600))

	cfg, err := Load("notes", dir)
	require.NoError(t, err)
	assert.Equal(t, 384, cfg.Dimension)
	assert.Equal(t, float32(0.8), cfg.SearchOptions.HybridWeight)
	// Unspecified search options still fall back to defaults.
	assert.Equal(t, DefaultNumResults, cfg.SearchOptions.DefaultNumResults)
}

func TestLoadDefaultsDirectoryURL(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("notes", dir)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DirectoryURL)
	assert.Contains(t, cfg.DirectoryURL, "VecturaKit")
}

func TestLoadEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "name: notes\nsearch_options:\n  hybrid_weight: 0.8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectura.yaml"), []byte(yamlContent), 0o600))

	t.Setenv("VECTURA_HYBRID_WEIGHT", "0.2")

	cfg, err := Load("notes", dir)
	require.NoError(t, err)
	assert.Equal(t, float32(0.2), cfg.SearchOptions.HybridWeight)
}

func TestValidateRejectsEmptyName(t *testing.T) {
	cfg := NewConfig("")
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeHybridWeight(t *testing.T) {
	cfg := NewConfig("notes")
	cfg.SearchOptions.HybridWeight = 1.5
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveBM25NormalizationFactor(t *testing.T) {
	cfg := NewConfig("notes")
	cfg.SearchOptions.BM25NormalizationFactor = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadMemoryStrategyKind(t *testing.T) {
	cfg := NewConfig("notes")
	cfg.MemoryStrategy.Kind = "bogus"
	require.Error(t, cfg.Validate())
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectura.yaml")

	cfg := NewConfig("notes")
	cfg.Dimension = 768
	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: notes")
	assert.Contains(t, string(data), "dimension: 768")

	loaded, err := Load("notes", dir)
	require.NoError(t, err)
	assert.Equal(t, 768, loaded.Dimension)
}
