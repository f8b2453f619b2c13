// Package rag implements the retrieval pipeline: embed the query,
// retrieve from the tenant's vector store, optionally rerank, and
// generate a grounded answer with citations.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/llm"
	"github.com/Sinbad21/Chatbot/internal/logging"
	"github.com/Sinbad21/Chatbot/internal/reranker"
	"github.com/Sinbad21/Chatbot/internal/vectorstore"
)

// ErrInvalidConfig indicates missing pipeline collaborators.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a similarity search against a tenant's store.
type Searcher interface {
	Search(ctx context.Context, tenantID string, query []float32, topK int) ([]vectorstore.SearchResult, error)
}

// Citation points an answer back at a retrieved chunk.
type Citation struct {
	DocumentID string `json:"document_id"`
	SourceID   string `json:"source_id"`
	ChunkID    string `json:"chunk_id"`
	Snippet    string `json:"snippet"`
}

// Answer is the pipeline output for one query.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Config holds pipeline tunables.
type Config struct {
	// TopK is the default number of chunks to retrieve.
	TopK int
	// SnippetLength caps citation snippets, in runes.
	SnippetLength int
}

// Pipeline wires the retrieval stages together. The reranker is
// optional; when nil, the vector-search order is used as-is.
type Pipeline struct {
	embedder  QueryEmbedder
	searcher  Searcher
	generator llm.Generator
	rr        reranker.Reranker
	cfg       Config
	logger    *logging.Logger
	metrics   *Metrics
}

// New creates a Pipeline. embedder, searcher, and generator are
// required; rr may be nil.
func New(embedder QueryEmbedder, searcher Searcher, generator llm.Generator, rr reranker.Reranker, cfg Config, logger *logging.Logger) (*Pipeline, error) {
	if embedder == nil || searcher == nil || generator == nil {
		return nil, fmt.Errorf("%w: embedder, searcher, and generator are required", ErrInvalidConfig)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = 200
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		rr:        rr,
		cfg:       cfg,
		logger:    logger.Named("rag"),
		metrics:   NewMetrics(logger),
	}, nil
}

// Answer runs the full pipeline for a tenant query. topK <= 0 uses the
// configured default.
//
// Embedding and retrieval failures are terminal for the request.
// Reranking failures are logged and skipped. Generation failures
// degrade to a fixed error sentinel answer with no citations; the chat
// surface always gets a response once retrieval succeeded.
func (p *Pipeline) Answer(ctx context.Context, tenantID, query string, topK int) (Answer, error) {
	start := time.Now()
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	vector, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return Answer{}, fmt.Errorf("embedding query: %w", err)
	}

	results, err := p.searcher.Search(ctx, tenantID, vector, topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving chunks: %w", err)
	}

	results = p.rerank(ctx, query, results, topK)

	contexts := make([]string, len(results))
	for i, res := range results {
		contexts[i] = res.Payload.Text
	}

	text, err := p.generator.Generate(ctx, buildPrompt(query, contexts))
	if err != nil {
		p.metrics.RecordGenerationFailure(ctx, tenantID)
		p.logger.Error(ctx, "answer generation failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return Answer{Text: generationFailedMsg, Citations: []Citation{}}, nil
	}

	citations := make([]Citation, len(results))
	for i, res := range results {
		citations[i] = Citation{
			DocumentID: res.Payload.DocumentID,
			SourceID:   res.Payload.SourceID,
			ChunkID:    res.Payload.ChunkID,
			Snippet:    snippet(res.Payload.Text, p.cfg.SnippetLength),
		}
	}

	p.metrics.RecordQuery(ctx, tenantID, len(results), time.Since(start))
	p.logger.Info(ctx, "answered query",
		zap.String("tenant_id", tenantID),
		zap.Int("retrieved", len(results)),
		zap.Duration("duration", time.Since(start)))
	return Answer{Text: text, Citations: citations}, nil
}

// rerank reorders results by cross-encoder relevance. Any failure keeps
// the similarity order; reranking never fails the request.
func (p *Pipeline) rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) []vectorstore.SearchResult {
	if p.rr == nil || len(results) == 0 {
		return results
	}

	docs := make([]reranker.Document, len(results))
	for i, res := range results {
		docs[i] = reranker.Document{
			ChunkID: res.Payload.ChunkID,
			Text:    res.Payload.Text,
			Score:   res.Score,
		}
	}

	scored, err := p.rr.Rerank(ctx, query, docs, topK)
	if err != nil {
		p.logger.Warn(ctx, "reranking failed, keeping similarity order", zap.Error(err))
		return results
	}

	reordered := make([]vectorstore.SearchResult, len(scored))
	for i, doc := range scored {
		reordered[i] = results[doc.OriginalRank]
	}
	return reordered
}

// snippet truncates text at maxRunes with an ellipsis marker.
func snippet(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
