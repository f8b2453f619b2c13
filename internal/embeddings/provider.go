// Package embeddings provides embedding generation with a
// content-addressed cache in front of the provider.
package embeddings

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderFailed indicates the embedding provider failed after
	// bounded retries. Batches are atomic: no partial success.
	ErrProviderFailed = errors.New("embedding provider failed")
)

// Provider is the interface for embedding providers.
//
// Embeddings are dense numerical representations that capture semantic
// meaning, enabling similarity search. Implementations call external
// APIs; the Generator handles caching, batching and retry on top.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts,
	// order-preserving, one vector per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Model returns the model identifier used for cache keys.
	Model() string

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// detectDimensionFromModel returns the embedding dimension for a model
// name. Falls back to 1536 for unknown models.
func detectDimensionFromModel(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	}
	switch {
	case strings.Contains(model, "large"):
		return 3072
	default:
		return 1536
	}
}
