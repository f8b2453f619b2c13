// Package ingest turns raw document text into embedded, stored chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/chunker"
	"github.com/Sinbad21/Chatbot/internal/logging"
	"github.com/Sinbad21/Chatbot/internal/tenant"
	"github.com/Sinbad21/Chatbot/internal/vectorstore"
)

// ErrInvalidConfig indicates missing service collaborators.
var ErrInvalidConfig = errors.New("invalid ingest configuration")

// Splitter chunks a document's text.
type Splitter interface {
	SplitDocument(sourceID, text string) []chunker.Chunk
}

// BatchEmbedder embeds an ordered batch of texts atomically.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists embedded chunks for a tenant.
type ChunkStore interface {
	AddDocumentChunks(ctx context.Context, tenantID string, payloads []vectorstore.Payload, vectors [][]float32) error
}

// Options carries optional document metadata propagated into chunk
// payloads.
type Options struct {
	Title    string
	Language string
}

// Result summarizes one ingested document.
type Result struct {
	DocumentID string
	ChunkCount int
}

// Service runs the ingestion flow: chunk, embed the whole batch, then
// store. Embedding is atomic, so a provider failure stores nothing and
// the document can be re-ingested safely.
type Service struct {
	splitter Splitter
	embedder BatchEmbedder
	store    ChunkStore
	logger   *logging.Logger
}

// NewService creates an ingestion service. All collaborators are
// required.
func NewService(splitter Splitter, embedder BatchEmbedder, store ChunkStore, logger *logging.Logger) (*Service, error) {
	if splitter == nil || embedder == nil || store == nil {
		return nil, fmt.Errorf("%w: splitter, embedder, and store are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		logger:   logger.Named("ingest"),
	}, nil
}

// Ingest chunks text, embeds all chunks as one atomic batch, and
// upserts them into the tenant's store. An empty document yields zero
// chunks and touches nothing.
func (s *Service) Ingest(ctx context.Context, tenantID, documentID, text string, opts Options) (*Result, error) {
	start := time.Now()
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id required", ErrInvalidConfig)
	}

	chunks := s.splitter.SplitDocument(documentID, text)
	if len(chunks) == 0 {
		s.logger.Info(ctx, "document produced no chunks",
			zap.String("tenant_id", tenantID), zap.String("document_id", documentID))
		return &Result{DocumentID: documentID}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding document %s: %w", documentID, err)
	}

	payloads := make([]vectorstore.Payload, len(chunks))
	for i, c := range chunks {
		meta := map[string]string{
			"chunk_index": strconv.Itoa(i),
			"token_count": strconv.Itoa(c.TokenCount),
		}
		if opts.Title != "" {
			meta["title"] = opts.Title
		}
		if opts.Language != "" {
			meta["lang"] = opts.Language
		}
		payloads[i] = vectorstore.Payload{
			DocumentID: documentID,
			SourceID:   c.SourceID,
			ChunkID:    c.ID,
			Text:       c.Text,
			Metadata:   meta,
		}
	}

	if err := s.store.AddDocumentChunks(ctx, tenantID, payloads, vectors); err != nil {
		return nil, fmt.Errorf("storing document %s: %w", documentID, err)
	}

	s.logger.Info(ctx, "ingested document",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(start)))
	return &Result{DocumentID: documentID, ChunkCount: len(chunks)}, nil
}
