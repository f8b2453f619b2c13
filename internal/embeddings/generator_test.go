package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns deterministic vectors derived from the text and
// counts provider calls.
type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	seen      [][]string
	failures  int // fail the first N calls
	dimension int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{dimension: 4}
}

func (f *fakeProvider) vectorFor(text string) []float32 {
	v := make([]float32, f.dimension)
	for i, r := range text {
		v[i%f.dimension] += float32(r)
	}
	return v
}

func (f *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seen = append(f.seen, append([]string(nil), texts...))
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeProvider) Model() string   { return "fake-model" }
func (f *fakeProvider) Dimension() int  { return f.dimension }
func (f *fakeProvider) Close() error    { return nil }
func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestGenerator(t *testing.T, provider *fakeProvider, cfg GeneratorConfig) *Generator {
	t.Helper()
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	g, err := NewGenerator(provider, NewLRUCache(0), cfg, nil)
	require.NoError(t, err)
	return g
}

func TestEmbedBatchOrderPreserving(t *testing.T) {
	provider := newFakeProvider()
	g := newTestGenerator(t, provider, GeneratorConfig{})

	texts := []string{"alpha", "bravo", "charlie", "delta"}
	vectors, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.Equal(t, provider.vectorFor(text), vectors[i], "vector %d out of order", i)
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	g := newTestGenerator(t, newFakeProvider(), GeneratorConfig{})
	_, err := g.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

// Second identical batch must be fully cache-hit: zero provider calls.
func TestEmbedBatchIdempotentViaCache(t *testing.T) {
	provider := newFakeProvider()
	g := newTestGenerator(t, provider, GeneratorConfig{})

	texts := []string{"one", "two", "three"}
	first, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	callsAfterFirst := provider.callCount()

	second, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, provider.callCount(), "second batch must not call the provider")
}

// Identical texts in one batch share a single provider input.
func TestEmbedBatchDeduplicatesWithinBatch(t *testing.T) {
	provider := newFakeProvider()
	g := newTestGenerator(t, provider, GeneratorConfig{})

	vectors, err := g.EmbedBatch(context.Background(), []string{"dup", "dup", "other"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[1])

	require.Len(t, provider.seen, 1)
	assert.Equal(t, []string{"dup", "other"}, provider.seen[0])
}

func TestEmbedBatchSplitsByMaxBatchSize(t *testing.T) {
	provider := newFakeProvider()
	g := newTestGenerator(t, provider, GeneratorConfig{MaxBatchSize: 2})

	texts := make([]string, 5)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	_, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, 3, provider.callCount())
	for _, batch := range provider.seen {
		assert.LessOrEqual(t, len(batch), 2)
	}
}

func TestEmbedBatchRetriesThenSucceeds(t *testing.T) {
	provider := newFakeProvider()
	provider.failures = 2
	g := newTestGenerator(t, provider, GeneratorConfig{MaxAttempts: 3})

	vectors, err := g.EmbedBatch(context.Background(), []string{"retry me"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, provider.callCount())
}

func TestEmbedBatchFailsAtomically(t *testing.T) {
	provider := newFakeProvider()
	provider.failures = 10
	g := newTestGenerator(t, provider, GeneratorConfig{MaxAttempts: 2})

	_, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestEmbedQueryCacheChecked(t *testing.T) {
	provider := newFakeProvider()
	g := newTestGenerator(t, provider, GeneratorConfig{})

	first, err := g.EmbedQuery(context.Background(), "what is a tenant?")
	require.NoError(t, err)
	callsAfterFirst := provider.callCount()

	second, err := g.EmbedQuery(context.Background(), "what is a tenant?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, provider.callCount())
}

func TestEmbedQuerySharesCacheWithBatch(t *testing.T) {
	provider := newFakeProvider()
	g := newTestGenerator(t, provider, GeneratorConfig{})

	_, err := g.EmbedBatch(context.Background(), []string{"shared text"})
	require.NoError(t, err)
	calls := provider.callCount()

	_, err = g.EmbedQuery(context.Background(), "shared text")
	require.NoError(t, err)
	assert.Equal(t, calls, provider.callCount())
}

func TestEmbedQueryEmptyText(t *testing.T) {
	g := newTestGenerator(t, newFakeProvider(), GeneratorConfig{})
	_, err := g.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewGeneratorValidation(t *testing.T) {
	_, err := NewGenerator(nil, NewLRUCache(0), GeneratorConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGenerator(newFakeProvider(), nil, GeneratorConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
