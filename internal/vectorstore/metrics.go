package vectorstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/logging"
)

// Metrics records vector store instrumentation. Instrument creation
// failures are logged and the affected instrument is skipped; metrics
// never block store operations.
type Metrics struct {
	searchDuration metric.Float64Histogram
	upsertDuration metric.Float64Histogram
	upsertSize     metric.Int64Histogram
	persistErrors  metric.Int64Counter
}

func NewMetrics(logger *logging.Logger) *Metrics {
	meter := otel.Meter("chatbot/vectorstore")
	m := &Metrics{}
	var err error

	m.searchDuration, err = meter.Float64Histogram(
		"chatbot.vectorstore.search_duration_seconds",
		metric.WithDescription("Time to execute a tenant similarity search"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create search duration histogram", zap.Error(err))
	}

	m.upsertDuration, err = meter.Float64Histogram(
		"chatbot.vectorstore.upsert_duration_seconds",
		metric.WithDescription("Time to upsert and persist a batch of chunks"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create upsert duration histogram", zap.Error(err))
	}

	m.upsertSize, err = meter.Int64Histogram(
		"chatbot.vectorstore.upsert_size",
		metric.WithDescription("Number of vectors per upsert batch"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create upsert size histogram", zap.Error(err))
	}

	m.persistErrors, err = meter.Int64Counter(
		"chatbot.vectorstore.persist_errors_total",
		metric.WithDescription("Snapshot persistence failures"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create persist errors counter", zap.Error(err))
	}

	return m
}

func (m *Metrics) RecordSearch(ctx context.Context, tenantID string, d time.Duration) {
	if m.searchDuration != nil {
		m.searchDuration.Record(ctx, d.Seconds(),
			metric.WithAttributes(attribute.String("tenant_id", tenantID)))
	}
}

func (m *Metrics) RecordUpsert(ctx context.Context, tenantID string, size int, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("tenant_id", tenantID))
	if m.upsertDuration != nil {
		m.upsertDuration.Record(ctx, d.Seconds(), attrs)
	}
	if m.upsertSize != nil {
		m.upsertSize.Record(ctx, int64(size), attrs)
	}
}

func (m *Metrics) RecordPersistError(ctx context.Context, tenantID string) {
	if m.persistErrors != nil {
		m.persistErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
	}
}
