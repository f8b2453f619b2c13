// Package vectorstore implements per-tenant exact similarity indexes
// with durable snapshot persistence.
//
// Each tenant (bot) owns an isolated index of L2-normalized vectors
// compared by inner product, which over normalized vectors is cosine
// similarity. Exact search over a bounded per-tenant corpus is
// sufficient at the scale this system targets; there is no ANN
// structure.
package vectorstore

import "errors"

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLengthMismatch is returned when vectors and payloads differ in
	// length.
	ErrLengthMismatch = errors.New("vectors and payloads length mismatch")

	// ErrDimensionMismatch is returned when a vector's dimension does
	// not match the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrPersistFailed indicates a snapshot write failure. The
	// in-memory index may be ahead of disk; the mutation is
	// unconfirmed and may be retried.
	ErrPersistFailed = errors.New("snapshot persistence failed")

	// ErrStoreCorrupted indicates an unusable tenant snapshot: one of
	// the two snapshot files is missing, or their counts disagree.
	// Operator intervention (delete and re-ingest) is required; the
	// store is never silently re-created empty.
	ErrStoreCorrupted = errors.New("tenant store corrupted")
)

// Payload is the metadata/text record associated with a stored vector,
// returned on retrieval. Payload position i corresponds to the vector
// at position i in the index.
type Payload struct {
	DocumentID string            `json:"document_id"`
	SourceID   string            `json:"source_id"`
	ChunkID    string            `json:"chunk_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a payload with its similarity score (higher = more
// similar; self-match scores ~1.0).
type SearchResult struct {
	Payload Payload
	Score   float32
}

// Stats describes a tenant store.
type Stats struct {
	VectorCount int `json:"vector_count"`
}
