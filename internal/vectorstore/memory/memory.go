// Package memory provides an in-memory VectorStore for tests and for
// running without a vector backend.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/vectorstore"
)

type point struct {
	doc    models.VectorDocument
	dense  []float32
	sparse map[uint32]float32
}

// Store is a brute-force in-memory vector store. Suitable for tests and
// small local datasets.
type Store struct {
	mu     sync.RWMutex
	points map[string]*point
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{points: make(map[string]*point)}
}

// EnsureSchema is a no-op.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return nil
}

// Upsert stores doc under doc.ID, overwriting any previous point.
func (s *Store) Upsert(ctx context.Context, doc *models.VectorDocument, dense []float32, sparse models.SparseVector) error {
	vec := make([]float32, len(dense))
	copy(vec, dense)
	sp := make(map[uint32]float32, len(sparse.Indices))
	for i, idx := range sparse.Indices {
		sp[idx] = sparse.Values[i]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[doc.ID] = &point{doc: *doc, dense: vec, sparse: sp}
	return nil
}

// Get returns the document with the given id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*models.VectorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	if !ok {
		return nil, nil
	}
	doc := p.doc
	return &doc, nil
}

// QueryDense returns up to limit points by cosine similarity.
func (s *Store) QueryDense(ctx context.Context, vector []float32, filter vectorstore.Filter, limit int, scoreThreshold float32) ([]vectorstore.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]vectorstore.ScoredDocument, 0)
	for _, p := range s.points {
		if !matches(&p.doc, filter) {
			continue
		}
		score := cosine(vector, p.dense)
		if scoreThreshold > 0 && score < float64(scoreThreshold) {
			continue
		}
		doc := p.doc
		results = append(results, vectorstore.ScoredDocument{Document: &doc, Score: score})
	}
	sortByScore(results)
	return truncated(results, limit), nil
}

// QuerySparse returns up to limit points by sparse dot product.
func (s *Store) QuerySparse(ctx context.Context, vector models.SparseVector, filter vectorstore.Filter, limit int) ([]vectorstore.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]vectorstore.ScoredDocument, 0)
	for _, p := range s.points {
		if !matches(&p.doc, filter) {
			continue
		}
		var score float64
		for i, idx := range vector.Indices {
			if w, ok := p.sparse[idx]; ok {
				score += float64(vector.Values[i]) * float64(w)
			}
		}
		if score <= 0 {
			continue
		}
		doc := p.doc
		results = append(results, vectorstore.ScoredDocument{Document: &doc, Score: score})
	}
	sortByScore(results)
	return truncated(results, limit), nil
}

// Exists reports whether any point matches the filter.
func (s *Store) Exists(ctx context.Context, filter vectorstore.Filter) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.points {
		if matches(&p.doc, filter) {
			return true, nil
		}
	}
	return false, nil
}

// ListByUser returns up to limit points owned by userID, in stable order.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*models.VectorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.points))
	for id, p := range s.points {
		if p.doc.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	docs := make([]*models.VectorDocument, 0, len(ids))
	for _, id := range ids {
		doc := s.points[id].doc
		docs = append(docs, &doc)
	}
	return docs, nil
}

// Delete removes one point by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.points, id)
	return nil
}

// DeleteByFilter removes every point matching the filter.
func (s *Store) DeleteByFilter(ctx context.Context, filter vectorstore.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if matches(&p.doc, filter) {
			delete(s.points, id)
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func matches(doc *models.VectorDocument, f vectorstore.Filter) bool {
	if f.UserID != "" && doc.UserID != f.UserID {
		return false
	}
	if f.Title != "" && doc.Title != f.Title {
		return false
	}
	if f.Source != "" && doc.Source != f.Source {
		return false
	}
	if f.FileName != "" && doc.FileName != f.FileName {
		return false
	}
	return true
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortByScore(results []vectorstore.ScoredDocument) {
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

func truncated(results []vectorstore.ScoredDocument, limit int) []vectorstore.ScoredDocument {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// Compile-time check that Store implements VectorStore.
var _ vectorstore.VectorStore = (*Store)(nil)
