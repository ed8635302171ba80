// Package memory provides an in-memory vector store using brute-force
// cosine similarity. Nothing survives the process, so the agent rebuilds
// the index on every run.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"docintel/internal/domain"
)

type Store struct {
	mu          sync.RWMutex
	dimension   int
	vectors     [][]float32
	chunks      []domain.Chunk
	fingerprint string
}

func NewStore() *Store { return &Store{} }

func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	return nil
}

func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return domain.ErrIndexMismatch
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	// vectors are assumed L2-normalized, so dot product is cosine
	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{Chunk: s.chunks[i], Score: dot(s.vectors[i], vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	s.fingerprint = ""
	return nil
}

func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Store) Fingerprint(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint, nil
}

func (s *Store) SetFingerprint(_ context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprint = fp
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
