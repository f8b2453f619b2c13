// Package config provides configuration loading for the retrieval core.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. The core does not own these knobs; it only documents the
// fallbacks applied when a value is absent.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete retrieval core configuration.
type Config struct {
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Generation GenerationConfig `koanf:"generation"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Store      StoreConfig      `koanf:"store"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	Model           string   `koanf:"model"`
	BaseURL         string   `koanf:"base_url"`
	APIKey          Secret   `koanf:"api_key"`
	MaxBatchSize    int      `koanf:"max_batch_size"`
	MaxAttempts     int      `koanf:"max_attempts"`
	RetryDelay      Duration `koanf:"retry_delay"`
	CacheMaxEntries int      `koanf:"cache_max_entries"`
}

// GenerationConfig holds answer-generation provider settings.
type GenerationConfig struct {
	Model       string  `koanf:"model"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float32 `koanf:"temperature"`
}

// ChunkingConfig holds document chunking parameters.
type ChunkingConfig struct {
	TargetTokens  int    `koanf:"target_tokens"`
	OverlapTokens int    `koanf:"overlap_tokens"`
	Encoding      string `koanf:"encoding"`
}

// RetrievalConfig holds query-side settings.
type RetrievalConfig struct {
	TopK          int    `koanf:"top_k"`
	SnippetLength int    `koanf:"snippet_length"`
	RerankerURL   string `koanf:"reranker_url"`
}

// StoreConfig holds vector store settings.
type StoreConfig struct {
	BasePath  string `koanf:"base_path"`
	Dimension int    `koanf:"dimension"`
}

// LoggingConfig holds logging settings (mapped onto logging.Config by
// the caller).
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults fills in defaults for missing values. The model names
// and chunking parameters mirror the platform's documented fallbacks.
func applyDefaults(cfg *Config) {
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.MaxBatchSize == 0 {
		cfg.Embedding.MaxBatchSize = 128
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.RetryDelay == 0 {
		cfg.Embedding.RetryDelay = Duration(500 * time.Millisecond)
	}
	if cfg.Embedding.CacheMaxEntries == 0 {
		cfg.Embedding.CacheMaxEntries = 10000
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1000
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.1
	}
	if cfg.Chunking.TargetTokens == 0 {
		cfg.Chunking.TargetTokens = 400
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 80
	}
	if cfg.Chunking.Encoding == "" {
		cfg.Chunking.Encoding = "cl100k_base"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.SnippetLength == 0 {
		cfg.Retrieval.SnippetLength = 200
	}
	if cfg.Store.BasePath == "" {
		cfg.Store.BasePath = "data/vector_stores"
	}
	if cfg.Store.Dimension == 0 {
		cfg.Store.Dimension = 1536
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for consistency errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Chunking.TargetTokens <= 0 {
		errs = append(errs, fmt.Errorf("chunking.target_tokens must be > 0, got %d", c.Chunking.TargetTokens))
	}
	if c.Chunking.OverlapTokens < 0 {
		errs = append(errs, fmt.Errorf("chunking.overlap_tokens must be >= 0, got %d", c.Chunking.OverlapTokens))
	}
	if c.Chunking.OverlapTokens >= c.Chunking.TargetTokens {
		errs = append(errs, fmt.Errorf("chunking.overlap_tokens (%d) must be less than chunking.target_tokens (%d)",
			c.Chunking.OverlapTokens, c.Chunking.TargetTokens))
	}
	if c.Embedding.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding.max_batch_size must be > 0, got %d", c.Embedding.MaxBatchSize))
	}
	if c.Embedding.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("embedding.max_attempts must be > 0, got %d", c.Embedding.MaxAttempts))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be > 0, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.SnippetLength <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.snippet_length must be > 0, got %d", c.Retrieval.SnippetLength))
	}
	if c.Store.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("store.dimension must be > 0, got %d", c.Store.Dimension))
	}

	return errors.Join(errs...)
}
