package rag

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/logging"
)

// Metrics records pipeline instrumentation. Instrument creation
// failures are logged and skipped; metrics never block queries.
type Metrics struct {
	queryDuration      metric.Float64Histogram
	retrievedChunks    metric.Int64Histogram
	generationFailures metric.Int64Counter
}

func NewMetrics(logger *logging.Logger) *Metrics {
	meter := otel.Meter("chatbot/rag")
	m := &Metrics{}
	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"chatbot.rag.query_duration_seconds",
		metric.WithDescription("End-to-end retrieval pipeline latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create query duration histogram", zap.Error(err))
	}

	m.retrievedChunks, err = meter.Int64Histogram(
		"chatbot.rag.retrieved_chunks",
		metric.WithDescription("Chunks retrieved per query"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create retrieved chunks histogram", zap.Error(err))
	}

	m.generationFailures, err = meter.Int64Counter(
		"chatbot.rag.generation_failures_total",
		metric.WithDescription("Queries degraded to the error sentinel answer"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create generation failures counter", zap.Error(err))
	}

	return m
}

func (m *Metrics) RecordQuery(ctx context.Context, tenantID string, retrieved int, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("tenant_id", tenantID))
	if m.queryDuration != nil {
		m.queryDuration.Record(ctx, d.Seconds(), attrs)
	}
	if m.retrievedChunks != nil {
		m.retrievedChunks.Record(ctx, int64(retrieved), attrs)
	}
}

func (m *Metrics) RecordGenerationFailure(ctx context.Context, tenantID string) {
	if m.generationFailures != nil {
		m.generationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
	}
}
