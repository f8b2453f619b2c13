package reranker

import (
	"context"
)

// NoopReranker keeps the vector-search order untouched. It is the
// default when no reranking strategy is configured.
type NoopReranker struct{}

func NewNoopReranker() *NoopReranker {
	return &NoopReranker{}
}

func (r *NoopReranker) Rerank(_ context.Context, _ string, docs []Document, topK int) ([]ScoredDocument, error) {
	if topK <= 0 || topK > len(docs) {
		topK = len(docs)
	}
	out := make([]ScoredDocument, topK)
	for i := 0; i < topK; i++ {
		out[i] = ScoredDocument{
			Document:      docs[i],
			RerankerScore: docs[i].Score,
			OriginalRank:  i,
		}
	}
	return out, nil
}

func (r *NoopReranker) Close() error {
	return nil
}
