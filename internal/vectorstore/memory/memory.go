package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	open      bool
	dimension int
	vectors   [][]float64
	docs      []domain.Document
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.dimension = dimension
	s.vectors = nil
	s.docs = nil
	return nil
}

// Open succeeds only after a Reset in the same process; nothing survives a restart.
func (s *Storage) Open(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return vectorstore.ErrStoreNotFound
	}
	if dimension != s.dimension {
		return vectorstore.ErrDimension
	}
	return nil
}

func (s *Storage) Write(_ context.Context, docs []domain.Document, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return vectorstore.ErrNotOpen
	}
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	for i, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		s.docs = append(s.docs, d)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return 0, vectorstore.ErrNotOpen
	}
	return len(s.docs), nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, vectorstore.ErrNotOpen
	}
	if topK <= 0 {
		topK = 3
	}
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = vectorstore.Cosine(s.vectors[i], vector)
	}
	// Get topK indexes
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		j := idxs[i]
		results = append(results, domain.SearchResult{Document: s.docs[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Sample(_ context.Context, n int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, vectorstore.ErrNotOpen
	}
	n = min(n, len(s.docs))
	out := make([]domain.Document, n)
	copy(out, s.docs[:n])
	return out, nil
}

// Close keeps the data so a later Open in the same process still finds it.
func (s *Storage) Close() error { return nil }

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := vals[idxs[(lo+hi)/2]]
	for i <= j {
		for vals[idxs[i]] > pivot { // desc order
			i++
		}
		for vals[idxs[j]] < pivot {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}
