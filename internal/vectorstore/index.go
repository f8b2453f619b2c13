package vectorstore

import (
	"fmt"
	"math"
	"sort"
)

// TenantIndex is an exact inner-product index over L2-normalized
// vectors with a parallel payload sequence. Append-only: single
// vectors are never deleted, only the whole tenant store.
//
// Invariant: Count() == len(payloads) at all times; payload i belongs
// to vector i. TenantIndex itself is not goroutine-safe; the Manager
// serializes access per tenant.
type TenantIndex struct {
	dim      int
	vectors  []float32 // row-major, Count() rows of dim
	payloads []Payload
}

// NewTenantIndex creates an empty index for vectors of the given
// dimension.
func NewTenantIndex(dim int) (*TenantIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be > 0, got %d", ErrInvalidConfig, dim)
	}
	return &TenantIndex{dim: dim}, nil
}

// Dimension returns the vector dimension.
func (ix *TenantIndex) Dimension() int {
	return ix.dim
}

// Count returns the number of stored vectors.
func (ix *TenantIndex) Count() int {
	return len(ix.payloads)
}

// Upsert appends vectors with their positionally aligned payloads.
// Vectors are L2-normalized before insertion. The append is all-or-
// nothing: validation runs before any mutation.
func (ix *TenantIndex) Upsert(vectors [][]float32, payloads []Payload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("%w: %d vectors, %d payloads", ErrLengthMismatch, len(vectors), len(payloads))
	}
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d",
				ErrDimensionMismatch, i, len(v), ix.dim)
		}
	}

	for _, v := range vectors {
		row := make([]float32, ix.dim)
		copy(row, v)
		normalize(row)
		ix.vectors = append(ix.vectors, row...)
	}
	ix.payloads = append(ix.payloads, payloads...)
	return nil
}

// Search returns up to topK payloads ranked by descending inner
// product of the normalized query against stored vectors. An empty
// index yields an empty result, never an error.
func (ix *TenantIndex) Search(query []float32, topK int) ([]SearchResult, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(query), ix.dim)
	}
	n := ix.Count()
	if n == 0 || topK <= 0 {
		return []SearchResult{}, nil
	}

	q := make([]float32, ix.dim)
	copy(q, query)
	normalize(q)

	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		scores[i] = dot(q, ix.vectors[i*ix.dim:(i+1)*ix.dim])
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > n {
		topK = n
	}
	results := make([]SearchResult, 0, topK)
	for _, i := range order[:topK] {
		results = append(results, SearchResult{Payload: ix.payloads[i], Score: scores[i]})
	}
	return results, nil
}

// normalize scales v to unit L2 norm in place. Zero vectors are left
// untouched.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
