package embeddings

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/chunker"
	"github.com/Sinbad21/Chatbot/internal/logging"
)

// GeneratorConfig holds batching and retry settings.
type GeneratorConfig struct {
	// MaxBatchSize bounds how many texts go to the provider per call.
	MaxBatchSize int
	// MaxAttempts bounds retries per provider call.
	MaxAttempts int
	// RetryDelay is the initial backoff delay; doubles per attempt.
	RetryDelay time.Duration
}

// Generator produces embeddings for document batches and queries,
// consulting the cache first and populating it on success.
//
// Batches are atomic: a provider failure after retries fails the whole
// batch and nothing from that batch is returned or, at higher layers,
// stored.
type Generator struct {
	provider Provider
	cache    Cache
	cfg      GeneratorConfig
	logger   *logging.Logger
	metrics  *Metrics
}

// NewGenerator creates a Generator on top of a provider and cache.
func NewGenerator(provider Provider, cache Cache, cfg GeneratorConfig, logger *logging.Logger) (*Generator, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider required", ErrInvalidConfig)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache required", ErrInvalidConfig)
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 128
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.Named("embeddings"),
		metrics:  NewMetrics(logger),
	}, nil
}

// EmbedBatch generates embeddings for texts, order-preserving, one
// vector per input. Cached texts are resolved immediately; identical
// texts within the batch are embedded once.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		g.metrics.RecordBatch(ctx, g.provider.Model(), time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	model := g.provider.Model()
	vectors := make([][]float32, len(texts))
	hashes := make([]string, len(texts))

	// Partition into cached hits and misses, collapsing duplicate
	// content within the batch to a single provider input.
	firstMiss := make(map[string]int, len(texts))
	var missIdx []int
	hits := 0
	for i, text := range texts {
		h := chunker.ContentHash(text)
		hashes[i] = h
		if vec, ok := g.cache.Get(h, model); ok {
			vectors[i] = vec
			hits++
			continue
		}
		if _, seen := firstMiss[h]; seen {
			continue
		}
		firstMiss[h] = i
		missIdx = append(missIdx, i)
	}
	g.metrics.RecordCache(ctx, model, hits, len(missIdx))

	if len(missIdx) > 0 {
		missTexts := make([]string, len(missIdx))
		for k, i := range missIdx {
			missTexts[k] = texts[i]
		}

		for offset := 0; offset < len(missTexts); offset += g.cfg.MaxBatchSize {
			stop := offset + g.cfg.MaxBatchSize
			if stop > len(missTexts) {
				stop = len(missTexts)
			}
			batch, err := g.embedWithRetry(ctx, missTexts[offset:stop])
			if err != nil {
				genErr = fmt.Errorf("%w: %v", ErrProviderFailed, err)
				return nil, genErr
			}
			for k, vec := range batch {
				i := missIdx[offset+k]
				vectors[i] = vec
				g.cache.Put(hashes[i], model, vec)
			}
		}
	}

	// Resolve in-batch duplicates from the first occurrence.
	for i := range texts {
		if vectors[i] == nil {
			vectors[i] = vectors[firstMiss[hashes[i]]]
		}
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query, still
// cache-checked.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		g.metrics.RecordQuery(ctx, g.provider.Model(), time.Since(start), genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	model := g.provider.Model()
	h := chunker.ContentHash(text)
	if vec, ok := g.cache.Get(h, model); ok {
		g.metrics.RecordCache(ctx, model, 1, 0)
		return vec, nil
	}
	g.metrics.RecordCache(ctx, model, 0, 1)

	var vec []float32
	err := retry.Do(
		func() error {
			var embedErr error
			vec, embedErr = g.provider.EmbedQuery(ctx, text)
			return embedErr
		},
		g.retryOptions(ctx)...,
	)
	if err != nil {
		genErr = fmt.Errorf("%w: %v", ErrProviderFailed, err)
		return nil, genErr
	}

	g.cache.Put(h, model, vec)
	return vec, nil
}

// Dimension returns the provider's embedding dimension.
func (g *Generator) Dimension() int {
	return g.provider.Dimension()
}

func (g *Generator) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(
		func() error {
			var embedErr error
			vectors, embedErr = g.provider.EmbedDocuments(ctx, texts)
			return embedErr
		},
		g.retryOptions(ctx)...,
	)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

func (g *Generator) retryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(uint(g.cfg.MaxAttempts)),
		retry.Delay(g.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn(ctx, "embedding provider call failed, retrying",
				zap.Uint("attempt", n+1),
				zap.Int("max_attempts", g.cfg.MaxAttempts),
				zap.Error(err))
		}),
	}
}
