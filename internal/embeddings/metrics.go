package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/logging"
)

const instrumentationName = "github.com/Sinbad21/Chatbot/internal/embeddings"

// Metrics holds embedding-related instruments. Failures to create
// instruments are logged, never fatal.
type Metrics struct {
	meter     metric.Meter
	logger    *logging.Logger
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	cacheHits metric.Int64Counter
	cacheMiss metric.Int64Counter
	errors    metric.Int64Counter
}

// NewMetrics creates a Metrics instance for embeddings.
func NewMetrics(logger *logging.Logger) *Metrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	ctx := context.Background()
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"chatbot.embedding.generation_duration_seconds",
		metric.WithDescription("Duration of embedding generation in seconds, labeled by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create duration histogram", zap.Error(err))
	}

	m.batchSize, err = m.meter.Int64Histogram(
		"chatbot.embedding.batch_size",
		metric.WithDescription("Number of texts per embedding batch request"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create batch size histogram", zap.Error(err))
	}

	m.cacheHits, err = m.meter.Int64Counter(
		"chatbot.embedding.cache_hits_total",
		metric.WithDescription("Embedding cache hits by model"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create cache hits counter", zap.Error(err))
	}

	m.cacheMiss, err = m.meter.Int64Counter(
		"chatbot.embedding.cache_misses_total",
		metric.WithDescription("Embedding cache misses by model"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create cache misses counter", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"chatbot.embedding.errors_total",
		metric.WithDescription("Embedding generation errors by model and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create errors counter", zap.Error(err))
	}
}

// RecordBatch records metrics for a document batch operation.
func (m *Metrics) RecordBatch(ctx context.Context, model string, duration time.Duration, batchSize int, err error) {
	m.record(ctx, model, "embed_batch", duration, batchSize, err)
}

// RecordQuery records metrics for a single-query operation.
func (m *Metrics) RecordQuery(ctx context.Context, model string, duration time.Duration, err error) {
	m.record(ctx, model, "embed_query", duration, 1, err)
}

// RecordCache records cache hit/miss counts for a lookup pass.
func (m *Metrics) RecordCache(ctx context.Context, model string, hits, misses int) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	if hits > 0 && m.cacheHits != nil {
		m.cacheHits.Add(ctx, int64(hits), attrs)
	}
	if misses > 0 && m.cacheMiss != nil {
		m.cacheMiss.Add(ctx, int64(misses), attrs)
	}
}

func (m *Metrics) record(ctx context.Context, model, operation string, duration time.Duration, batchSize int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
	if batchSize > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batchSize), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}
