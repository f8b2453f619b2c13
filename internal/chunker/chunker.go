// Package chunker splits normalized document text into overlapping,
// token-bounded segments respecting paragraph and sentence boundaries.
//
// Token counts use the same tiktoken encoding as the target embedding
// and generation models, so chunk budgets line up with what providers
// actually see. Boundaries are best-effort: an emitted chunk may exceed
// TargetTokens by the overlap plus a small slack from token merging at
// join points, never by a full unit.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// ErrInvalidConfig is returned for unusable chunking parameters.
var ErrInvalidConfig = errors.New("invalid chunking configuration")

// Chunk is the unit of retrievable text. Immutable once created; if the
// source text changes, chunks are regenerated with new IDs.
type Chunk struct {
	ID          string `json:"chunk_id"`
	SourceID    string `json:"source_id"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	TokenCount  int    `json:"token_count"`
	ContentHash string `json:"content_hash"`
	Title       string `json:"title,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Config holds chunking parameters.
type Config struct {
	// TargetTokens is the soft upper bound per chunk.
	TargetTokens int
	// OverlapTokens is how many trailing tokens of a chunk seed the next.
	OverlapTokens int
	// Encoding is the tiktoken encoding name (default cl100k_base).
	Encoding string
}

// Splitter chunks document text.
type Splitter struct {
	cfg Config
	enc *tiktoken.Tiktoken
}

// New creates a Splitter, validating the configuration.
func New(cfg Config) (*Splitter, error) {
	if cfg.TargetTokens <= 0 {
		return nil, fmt.Errorf("%w: target_tokens must be > 0, got %d", ErrInvalidConfig, cfg.TargetTokens)
	}
	if cfg.OverlapTokens < 0 {
		return nil, fmt.Errorf("%w: overlap_tokens must be >= 0, got %d", ErrInvalidConfig, cfg.OverlapTokens)
	}
	if cfg.OverlapTokens >= cfg.TargetTokens {
		return nil, fmt.Errorf("%w: overlap_tokens (%d) must be less than target_tokens (%d)",
			ErrInvalidConfig, cfg.OverlapTokens, cfg.TargetTokens)
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(cfg.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q: %v", ErrInvalidConfig, cfg.Encoding, err)
	}
	return &Splitter{cfg: cfg, enc: enc}, nil
}

// ContentHash returns the hex SHA-256 digest of normalized text, used
// as the embedding cache key and for dedup.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// Normalize collapses whitespace runs to single spaces and trims.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// piece is an emitted chunk plus how many leading characters were
// seeded from the previous chunk's tail.
type piece struct {
	text    string
	overlap int
	tokens  int
}

// Split chunks text and returns the chunk texts in order. Empty input
// yields nil.
func (s *Splitter) Split(text string) []string {
	pieces := s.split(text)
	if len(pieces) == 0 {
		return nil
	}
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

// SplitDocument chunks text for a source, assigning stable chunk IDs
// (sourceID_ordinal), character offsets into the normalized text
// stream, token counts, and content hashes.
func (s *Splitter) SplitDocument(sourceID, text string) []Chunk {
	pieces := s.split(text)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(pieces))
	end := 0
	for i, p := range pieces {
		start := end - p.overlap
		if start < 0 {
			start = 0
		}
		end = start + len(p.text)
		chunks = append(chunks, Chunk{
			ID:          fmt.Sprintf("%s_%d", sourceID, i),
			SourceID:    sourceID,
			Text:        p.text,
			StartOffset: start,
			EndOffset:   end,
			TokenCount:  p.tokens,
			ContentHash: ContentHash(p.text),
		})
	}
	return chunks
}

func (s *Splitter) split(text string) []piece {
	units := s.units(text)
	if len(units) == 0 {
		return nil
	}

	var out []piece
	cur := ""
	curTokens := 0
	curOverlap := 0

	emit := func() {
		out = append(out, piece{text: cur, overlap: curOverlap, tokens: s.count(cur)})
	}

	for _, u := range units {
		uTokens := s.count(u)
		if cur == "" {
			cur, curTokens, curOverlap = u, uTokens, 0
			continue
		}
		if curTokens+uTokens > s.cfg.TargetTokens {
			emit()
			ov := s.tail(cur)
			if ov != "" {
				cur = ov + " " + u
				curOverlap = len(ov) + 1
			} else {
				cur = u
				curOverlap = 0
			}
			curTokens = s.count(cur)
			continue
		}
		cur = cur + " " + u
		curTokens += uTokens
	}
	if cur != "" {
		emit()
	}
	return out
}

// units flattens the text into a sequence of chunkable strings: whole
// paragraphs where they fit the budget, sentences where a paragraph is
// oversized, and forced token-window splits where a single sentence
// still exceeds the budget. No unit ever exceeds TargetTokens and no
// non-whitespace text is dropped.
func (s *Splitter) units(text string) []string {
	var units []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = Normalize(para)
		if para == "" {
			continue
		}
		if s.count(para) <= s.cfg.TargetTokens {
			units = append(units, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			if s.count(sent) <= s.cfg.TargetTokens {
				units = append(units, sent)
				continue
			}
			units = append(units, s.hardSplit(sent)...)
		}
	}
	return units
}

// hardSplit forces an oversized sentence into windows of at most
// TargetTokens tokens, decoded back to text. Last resort only.
func (s *Splitter) hardSplit(text string) []string {
	tokens := s.enc.Encode(text, nil, nil)
	var out []string
	for start := 0; start < len(tokens); start += s.cfg.TargetTokens {
		stop := start + s.cfg.TargetTokens
		if stop > len(tokens) {
			stop = len(tokens)
		}
		part := strings.TrimSpace(s.enc.Decode(tokens[start:stop]))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// tail decodes the trailing OverlapTokens tokens of text.
func (s *Splitter) tail(text string) string {
	if s.cfg.OverlapTokens == 0 {
		return ""
	}
	tokens := s.enc.Encode(text, nil, nil)
	if len(tokens) > s.cfg.OverlapTokens {
		tokens = tokens[len(tokens)-s.cfg.OverlapTokens:]
	}
	return strings.TrimSpace(s.enc.Decode(tokens))
}

func (s *Splitter) count(text string) int {
	return len(s.enc.Encode(text, nil, nil))
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace. RE2 has no lookbehind, so this scans runes directly.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if isSentenceEnd(runes[i]) && isSpace(runes[i+1]) {
			sent := strings.TrimSpace(string(runes[start : i+1]))
			if sent != "" {
				out = append(out, sent)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
