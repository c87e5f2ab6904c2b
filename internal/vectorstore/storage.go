// Package vectorstore holds the Document Store abstraction and its backends.
package vectorstore

import (
	"context"
	"errors"
	"math"

	"healthqa/internal/domain"
)

var (
	// ErrStoreNotFound means no index exists at the configured location.
	ErrStoreNotFound = errors.New("vector store not found")
	// ErrStoreInUse means another process already holds the store.
	ErrStoreInUse = errors.New("vector store already in use by another process")
	// ErrNotOpen is returned by data operations before Reset or Open.
	ErrNotOpen = errors.New("vector store not opened")
	// ErrDimension is returned when a vector does not match the store dimension.
	ErrDimension = errors.New("vector dimension mismatch")
)

// Storage persists documents with their vectors and supports similarity search.
type Storage interface {
	// Reset destroys any existing collection and creates an empty one.
	Reset(ctx context.Context, dimension int) error
	// Open attaches to an existing collection for reading.
	Open(ctx context.Context, dimension int) error
	// Write stores documents alongside their vectors. Documents without an ID
	// receive a store-assigned one.
	Write(ctx context.Context, docs []domain.Document, vectors [][]float64) error
	Count(ctx context.Context) (int, error)
	// Search returns at most topK documents ordered by descending similarity.
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	// Sample returns up to n stored documents, for verification output.
	Sample(ctx context.Context, n int) ([]domain.Document, error)
	Close() error
}

// CheckBatch validates that docs and vectors pair up and match dimension.
func CheckBatch(docs []domain.Document, vectors [][]float64, dimension int) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	for _, v := range vectors {
		if len(v) != dimension {
			return ErrDimension
		}
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 for zero vectors.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK keeps the k best-scoring results seen so far, best first.
type TopK struct {
	k   int
	res []domain.SearchResult
}

// NewTopK returns a collector for at most k results.
func NewTopK(k int) *TopK {
	return &TopK{k: k, res: make([]domain.SearchResult, 0, k+1)}
}

// Push offers a candidate. Ties keep the earlier candidate first.
func (t *TopK) Push(r domain.SearchResult) {
	if t.k <= 0 {
		return
	}
	if len(t.res) == t.k && r.Score <= t.res[len(t.res)-1].Score {
		return
	}
	i := len(t.res)
	for i > 0 && t.res[i-1].Score < r.Score {
		i--
	}
	t.res = append(t.res, domain.SearchResult{})
	copy(t.res[i+1:], t.res[i:])
	t.res[i] = r
	if len(t.res) > t.k {
		t.res = t.res[:t.k]
	}
}

// Results returns the collected results ordered by descending score.
func (t *TopK) Results() []domain.SearchResult { return t.res }
