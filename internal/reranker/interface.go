// Package reranker re-orders retrieved chunks by query relevance before
// they reach the prompt builder.
package reranker

import (
	"context"
)

// Document is a retrieved chunk handed to a reranker.
type Document struct {
	ChunkID string  // Chunk identifier from the vector store payload
	Text    string  // Chunk text to score against the query
	Score   float32 // Similarity score from the vector search
}

// ScoredDocument is a document with its reranker relevance score.
type ScoredDocument struct {
	Document
	RerankerScore float32 // Relevance score assigned by the reranker
	OriginalRank  int     // Rank position before reranking (0-indexed)
}

// Reranker scores documents against a query and returns them sorted by
// descending relevance, limited to topK.
//
// Reranking is best-effort in the retrieval pipeline: an error from
// Rerank causes the caller to fall back to the vector-search order, it
// never fails the request.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error)

	// Close releases any resources held by the reranker.
	Close() error
}
