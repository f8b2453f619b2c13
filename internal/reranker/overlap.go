package reranker

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// OverlapReranker combines the vector similarity score with lexical
// term overlap between query and chunk. It needs no external service
// and is the fallback when no cross-encoder endpoint is configured.
type OverlapReranker struct {
	// similarityWeight and overlapWeight balance the two signals.
	similarityWeight float32
	overlapWeight    float32
}

// NewOverlapReranker creates an OverlapReranker with equal weighting of
// similarity and term overlap.
func NewOverlapReranker() *OverlapReranker {
	return &OverlapReranker{similarityWeight: 0.5, overlapWeight: 0.5}
}

func (r *OverlapReranker) Rerank(_ context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error) {
	if topK <= 0 {
		topK = len(docs)
	}
	if len(docs) == 0 {
		return []ScoredDocument{}, nil
	}

	queryTerms := termSet(query)

	scored := make([]ScoredDocument, len(docs))
	combined := make([]float32, len(docs))
	for i, doc := range docs {
		overlap := overlapRatio(queryTerms, termSet(doc.Text))
		scored[i] = ScoredDocument{
			Document:      doc,
			RerankerScore: overlap,
			OriginalRank:  i,
		}
		combined[i] = r.similarityWeight*doc.Score + r.overlapWeight*overlap
		if len(queryTerms) == 0 {
			// Nothing lexical to match against; keep the
			// similarity order.
			combined[i] = doc.Score
		}
	}

	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return combined[order[a]] > combined[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	out := make([]ScoredDocument, topK)
	for i := 0; i < topK; i++ {
		out[i] = scored[order[i]]
	}
	return out, nil
}

func (r *OverlapReranker) Close() error {
	return nil
}

// termSet extracts the set of significant lowercase terms from text.
// Stopwords cover both English and Italian since the platform serves
// Italian document bases.
func termSet(text string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// overlapRatio is the fraction of query terms present in the document,
// in [0, 1].
func overlapRatio(query, doc map[string]struct{}) float32 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for term := range query {
		if _, ok := doc[term]; ok {
			matched++
		}
	}
	return float32(matched) / float32(len(query))
}

var stopwords = map[string]bool{
	// English
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "are": true, "was": true, "were": true,
	"have": true, "has": true, "had": true, "not": true, "but": true,
	"what": true, "which": true, "when": true, "where": true, "who": true,
	"how": true, "why": true, "can": true, "could": true, "will": true,
	"would": true, "should": true, "about": true,
	// Italian
	"che": true, "con": true, "per": true, "una": true, "uno": true,
	"del": true, "della": true, "delle": true, "dei": true, "degli": true,
	"nel": true, "nella": true, "sono": true, "come": true, "quale": true,
	"quali": true, "quando": true, "dove": true, "cosa": true, "chi": true,
	"gli": true, "non": true, "più": true, "anche": true, "essere": true,
}
