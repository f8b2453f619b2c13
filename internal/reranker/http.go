package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// ErrRerankFailed wraps failures from the cross-encoder service.
var ErrRerankFailed = errors.New("rerank request failed")

// HTTPReranker calls an external cross-encoder scoring service over
// HTTP. The service receives the query and candidate texts and returns
// a relevance score per candidate.
type HTTPReranker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPReranker creates a reranker backed by the cross-encoder
// service at endpoint.
func NewHTTPReranker(endpoint string) (*HTTPReranker, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint required", ErrRerankFailed)
	}
	return &HTTPReranker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      int      `json:"top_k"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float32 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error) {
	if topK <= 0 {
		topK = len(docs)
	}
	if len(docs) == 0 {
		return []ScoredDocument{}, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	body, err := json.Marshal(rerankRequest{Query: query, Documents: texts, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRerankFailed, resp.StatusCode, snippet)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrRerankFailed, err)
	}

	out := make([]ScoredDocument, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(docs) {
			return nil, fmt.Errorf("%w: result index %d out of range", ErrRerankFailed, res.Index)
		}
		out = append(out, ScoredDocument{
			Document:      docs[res.Index],
			RerankerScore: res.Score,
			OriginalRank:  res.Index,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankerScore > out[j].RerankerScore
	})
	if topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

// Close releases idle connections held by the HTTP client.
func (r *HTTPReranker) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
