// Package config implements Vectura's database configuration: field
// validation and YAML (de)serialization, layered default -> file -> env
// precedence grounded on the teacher's internal/config.Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vecturakit/vectura/internal/searchquery"
)

// Defaults for SearchOptions (SPEC_FULL.md §6).
const (
	DefaultNumResults              = 10
	DefaultHybridWeight            = 0.5
	DefaultBM25NormalizationFactor = 10.0
	DefaultK1                      = 1.2
	DefaultB                       = 0.75

	// DefaultAutomaticThreshold is the document count at or above which the
	// default Automatic memory strategy switches to the indexed path.
	DefaultAutomaticThreshold   = 1000
	DefaultCandidateMultiplier  = 4
	DefaultBatchSize            = 64
	DefaultMaxConcurrentBatches = 4
)

// SearchOptions carries the tunable search parameters named in
// SPEC_FULL.md §6, repurposing the teacher's weighted/RRF-tuned
// SearchConfig field set into Vectura's linear-fusion equivalent
// (HybridWeight/BM25NormalizationFactor/K1/B).
type SearchOptions struct {
	DefaultNumResults       int      `yaml:"default_num_results" json:"default_num_results"`
	MinThreshold            *float32 `yaml:"min_threshold,omitempty" json:"min_threshold,omitempty"`
	HybridWeight            float32  `yaml:"hybrid_weight" json:"hybrid_weight"`
	BM25NormalizationFactor float32  `yaml:"bm25_normalization_factor" json:"bm25_normalization_factor"`
	K1                      float32  `yaml:"k1" json:"k1"`
	B                       float32  `yaml:"b" json:"b"`
}

func defaultSearchOptions() SearchOptions {
	return SearchOptions{
		DefaultNumResults:       DefaultNumResults,
		HybridWeight:            DefaultHybridWeight,
		BM25NormalizationFactor: DefaultBM25NormalizationFactor,
		K1:                      DefaultK1,
		B:                       DefaultB,
	}
}

// MemoryStrategyConfig is the on-disk representation of a
// searchquery.MemoryStrategy, since the strategy's tagged-union shape
// doesn't map directly onto YAML without a discriminant field.
type MemoryStrategyConfig struct {
	Kind                 string `yaml:"kind" json:"kind"` // "full_memory" | "indexed" | "automatic"
	CandidateMultiplier  int    `yaml:"candidate_multiplier,omitempty" json:"candidate_multiplier,omitempty"`
	BatchSize            int    `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	MaxConcurrentBatches int    `yaml:"max_concurrent_batches,omitempty" json:"max_concurrent_batches,omitempty"`
	Threshold            int    `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

func defaultMemoryStrategyConfig() MemoryStrategyConfig {
	return MemoryStrategyConfig{
		Kind:                 "automatic",
		CandidateMultiplier:  DefaultCandidateMultiplier,
		BatchSize:            DefaultBatchSize,
		MaxConcurrentBatches: DefaultMaxConcurrentBatches,
		Threshold:            DefaultAutomaticThreshold,
	}
}

// Resolve converts the on-disk shape into the searchquery.MemoryStrategy
// the engines consume.
func (m MemoryStrategyConfig) Resolve() (searchquery.MemoryStrategy, error) {
	switch strings.ToLower(m.Kind) {
	case "", "automatic":
		return searchquery.AutomaticStrategy(m.Threshold, m.CandidateMultiplier, m.BatchSize, m.MaxConcurrentBatches), nil
	case "full_memory":
		return searchquery.FullMemoryStrategy(), nil
	case "indexed":
		return searchquery.IndexedStrategy(m.CandidateMultiplier, m.BatchSize, m.MaxConcurrentBatches), nil
	default:
		return searchquery.MemoryStrategy{}, fmt.Errorf("memory_strategy.kind must be 'full_memory', 'indexed', or 'automatic', got %q", m.Kind)
	}
}

// Config is a Vectura database's complete configuration (SPEC_FULL.md §6).
type Config struct {
	Name           string               `yaml:"name" json:"name"`
	DirectoryURL   string               `yaml:"directory_url,omitempty" json:"directory_url,omitempty"`
	Dimension      int                  `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	MemoryStrategy MemoryStrategyConfig `yaml:"memory_strategy" json:"memory_strategy"`
	SearchOptions  SearchOptions        `yaml:"search_options" json:"search_options"`
}

// NewConfig creates a Config with sensible defaults for the named
// database, matching SPEC_FULL.md §6's "default Automatic with
// implementation-chosen defaults."
func NewConfig(name string) *Config {
	return &Config{
		Name:           name,
		MemoryStrategy: defaultMemoryStrategyConfig(),
		SearchOptions:  defaultSearchOptions(),
	}
}

// defaultDirectoryURL mirrors SPEC_FULL.md §6's default root,
// $HOME/VecturaKit/<name>.
func defaultDirectoryURL(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "VecturaKit", name)
	}
	return filepath.Join(home, "VecturaKit", name)
}

// Load resolves a database's configuration in order of increasing
// precedence, the same layering the teacher's Load applies to project
// configuration:
//  1. Hardcoded defaults
//  2. <dir>/vectura.yaml, if present
//  3. VECTURA_* environment variable overrides
func Load(name, dir string) (*Config, error) {
	cfg := NewConfig(name)

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = defaultDirectoryURL(cfg.Name)
	} else {
		cfg.DirectoryURL = filepath.Join(cfg.DirectoryURL, cfg.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from vectura.yaml or
// vectura.yml in dir.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "vectura.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, "vectura.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.DirectoryURL != "" {
		c.DirectoryURL = other.DirectoryURL
	}
	if other.Dimension != 0 {
		c.Dimension = other.Dimension
	}
	if other.MemoryStrategy.Kind != "" {
		c.MemoryStrategy = other.MemoryStrategy
	}

	if other.SearchOptions.DefaultNumResults != 0 {
		c.SearchOptions.DefaultNumResults = other.SearchOptions.DefaultNumResults
	}
	if other.SearchOptions.MinThreshold != nil {
		c.SearchOptions.MinThreshold = other.SearchOptions.MinThreshold
	}
	if other.SearchOptions.HybridWeight != 0 {
		c.SearchOptions.HybridWeight = other.SearchOptions.HybridWeight
	}
	if other.SearchOptions.BM25NormalizationFactor != 0 {
		c.SearchOptions.BM25NormalizationFactor = other.SearchOptions.BM25NormalizationFactor
	}
	if other.SearchOptions.K1 != 0 {
		c.SearchOptions.K1 = other.SearchOptions.K1
	}
	if other.SearchOptions.B != 0 {
		c.SearchOptions.B = other.SearchOptions.B
	}
}

// applyEnvOverrides applies VECTURA_* environment variable overrides,
// the highest-precedence layer in Load.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VECTURA_DIRECTORY_URL"); v != "" {
		c.DirectoryURL = v
	}
	if v := os.Getenv("VECTURA_DIMENSION"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Dimension = d
		}
	}
	if v := os.Getenv("VECTURA_HYBRID_WEIGHT"); v != "" {
		if w, err := parseFloat32(v); err == nil && w >= 0 && w <= 1 {
			c.SearchOptions.HybridWeight = w
		}
	}
	if v := os.Getenv("VECTURA_BM25_NORMALIZATION_FACTOR"); v != "" {
		if f, err := parseFloat32(v); err == nil && f > 0 {
			c.SearchOptions.BM25NormalizationFactor = f
		}
	}
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(f), err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate validates the configuration, mirroring the teacher's
// (*Config).Validate range-check idiom.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must be non-empty")
	}
	if c.Dimension < 0 {
		return fmt.Errorf("dimension must be non-negative, got %d", c.Dimension)
	}

	if _, err := c.MemoryStrategy.Resolve(); err != nil {
		return err
	}

	if c.SearchOptions.DefaultNumResults <= 0 {
		return fmt.Errorf("search_options.default_num_results must be >= 1, got %d", c.SearchOptions.DefaultNumResults)
	}
	if c.SearchOptions.HybridWeight < 0 || c.SearchOptions.HybridWeight > 1 {
		return fmt.Errorf("search_options.hybrid_weight must be between 0 and 1, got %f", c.SearchOptions.HybridWeight)
	}
	if c.SearchOptions.BM25NormalizationFactor <= 0 {
		return fmt.Errorf("search_options.bm25_normalization_factor must be positive, got %f", c.SearchOptions.BM25NormalizationFactor)
	}
	if c.SearchOptions.K1 < 0 {
		return fmt.Errorf("search_options.k1 must be non-negative, got %f", c.SearchOptions.K1)
	}
	if c.SearchOptions.B < 0 || c.SearchOptions.B > 1 {
		return fmt.Errorf("search_options.b must be between 0 and 1, got %f", c.SearchOptions.B)
	}
	if c.SearchOptions.MinThreshold != nil {
		t := *c.SearchOptions.MinThreshold
		if t < -1 || t > 1 {
			return fmt.Errorf("search_options.min_threshold must be between -1 and 1, got %f", t)
		}
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
