package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinbad21/Chatbot/internal/logging"
	"github.com/Sinbad21/Chatbot/internal/reranker"
	"github.com/Sinbad21/Chatbot/internal/vectorstore"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeSearcher struct {
	results []vectorstore.SearchResult
	err     error
	topK    int
}

func (f *fakeSearcher) Search(_ context.Context, tenantID string, query []float32, topK int) ([]vectorstore.SearchResult, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) Close() error { return nil }

type reversingReranker struct{ err error }

func (r *reversingReranker) Rerank(_ context.Context, _ string, docs []reranker.Document, topK int) ([]reranker.ScoredDocument, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]reranker.ScoredDocument, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		out = append(out, reranker.ScoredDocument{Document: docs[i], RerankerScore: 1, OriginalRank: i})
	}
	if topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

func (r *reversingReranker) Close() error { return nil }

func searchResults() []vectorstore.SearchResult {
	return []vectorstore.SearchResult{
		{Payload: vectorstore.Payload{DocumentID: "doc-1", SourceID: "doc-1", ChunkID: "doc-1_0", Text: "first chunk text"}, Score: 0.9},
		{Payload: vectorstore.Payload{DocumentID: "doc-1", SourceID: "doc-1", ChunkID: "doc-1_1", Text: "second chunk text"}, Score: 0.8},
	}
}

func newPipeline(t *testing.T, searcher *fakeSearcher, gen *fakeGenerator, rr reranker.Reranker) *Pipeline {
	t.Helper()
	p, err := New(&fakeEmbedder{}, searcher, gen, rr, Config{TopK: 5, SnippetLength: 200}, logging.NewNop())
	require.NoError(t, err)
	return p
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &fakeSearcher{}, &fakeGenerator{}, nil, Config{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPipeline_AnswerWithContext(t *testing.T) {
	gen := &fakeGenerator{answer: "grounded answer"}
	p := newPipeline(t, &fakeSearcher{results: searchResults()}, gen, nil)

	answer, err := p.Answer(context.Background(), "acme", "what is this", 0)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer.Text)

	// Default topK reaches the searcher.
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, Citation{DocumentID: "doc-1", SourceID: "doc-1", ChunkID: "doc-1_0", Snippet: "first chunk text"}, answer.Citations[0])
	assert.Equal(t, "doc-1_1", answer.Citations[1].ChunkID)

	assert.Contains(t, gen.prompt, "Source 1: first chunk text")
	assert.Contains(t, gen.prompt, "Source 2: second chunk text")
	assert.Contains(t, gen.prompt, "based only on the provided context")
	assert.Contains(t, gen.prompt, notFoundSentinel)
	assert.Contains(t, gen.prompt, "Question: what is this")
}

func TestPipeline_EmptyStore(t *testing.T) {
	gen := &fakeGenerator{answer: insufficientSentinel}
	p := newPipeline(t, &fakeSearcher{}, gen, nil)

	answer, err := p.Answer(context.Background(), "acme", "anything", 5)
	require.NoError(t, err, "empty store is not an error")
	assert.Equal(t, insufficientSentinel, answer.Text)
	assert.Empty(t, answer.Citations)

	// The context-free prompt allows general knowledge.
	assert.Contains(t, gen.prompt, "general knowledge")
	assert.Contains(t, gen.prompt, insufficientSentinel)
	assert.NotContains(t, gen.prompt, "Source 1:")
}

func TestPipeline_EmbedFailureIsTerminal(t *testing.T) {
	embErr := errors.New("provider down")
	p, err := New(&fakeEmbedder{err: embErr}, &fakeSearcher{}, &fakeGenerator{}, nil, Config{}, nil)
	require.NoError(t, err)

	_, err = p.Answer(context.Background(), "acme", "q", 5)
	require.ErrorIs(t, err, embErr)
}

func TestPipeline_SearchFailureIsTerminal(t *testing.T) {
	p := newPipeline(t, &fakeSearcher{err: vectorstore.ErrStoreCorrupted}, &fakeGenerator{}, nil)

	_, err := p.Answer(context.Background(), "acme", "q", 5)
	require.ErrorIs(t, err, vectorstore.ErrStoreCorrupted)
}

func TestPipeline_GenerationFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p := newPipeline(t, &fakeSearcher{results: searchResults()}, gen, nil)

	answer, err := p.Answer(context.Background(), "acme", "q", 5)
	require.NoError(t, err, "a chat response is always produced")
	assert.Equal(t, generationFailedMsg, answer.Text)
	assert.Empty(t, answer.Citations)
}

func TestPipeline_RerankReordersCitations(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	p := newPipeline(t, &fakeSearcher{results: searchResults()}, gen, &reversingReranker{})

	answer, err := p.Answer(context.Background(), "acme", "q", 5)
	require.NoError(t, err)
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "doc-1_1", answer.Citations[0].ChunkID)
	assert.Equal(t, "doc-1_0", answer.Citations[1].ChunkID)

	// Prompt follows the reranked order too.
	assert.Less(t,
		strings.Index(gen.prompt, "second chunk text"),
		strings.Index(gen.prompt, "first chunk text"))
}

func TestPipeline_RerankFailureKeepsOrder(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	p := newPipeline(t, &fakeSearcher{results: searchResults()}, gen, &reversingReranker{err: errors.New("service down")})

	answer, err := p.Answer(context.Background(), "acme", "q", 5)
	require.NoError(t, err, "reranking must never fail the request")
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "doc-1_0", answer.Citations[0].ChunkID)
}

func TestPipeline_SnippetTruncation(t *testing.T) {
	long := strings.Repeat("è", 250)
	results := []vectorstore.SearchResult{
		{Payload: vectorstore.Payload{DocumentID: "d", SourceID: "d", ChunkID: "d_0", Text: long}, Score: 0.9},
	}
	gen := &fakeGenerator{answer: "ok"}
	p := newPipeline(t, &fakeSearcher{results: results}, gen, nil)

	answer, err := p.Answer(context.Background(), "acme", "q", 1)
	require.NoError(t, err)
	require.Len(t, answer.Citations, 1)

	snip := answer.Citations[0].Snippet
	assert.True(t, strings.HasSuffix(snip, "..."))
	assert.Equal(t, 200, len([]rune(strings.TrimSuffix(snip, "..."))))
}

func TestPipeline_TopKOverride(t *testing.T) {
	searcher := &fakeSearcher{results: searchResults()}
	p := newPipeline(t, searcher, &fakeGenerator{answer: "ok"}, nil)

	_, err := p.Answer(context.Background(), "acme", "q", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, searcher.topK)

	_, err = p.Answer(context.Background(), "acme", "q", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, searcher.topK, "non-positive topK uses the configured default")
}
