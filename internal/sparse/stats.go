package sparse

import (
	"context"
	"sync"
)

// Stats provides corpus-level term statistics for BM25 weighting. The
// SQLite metadata store implements this for persistence; MemoryStats backs
// tests and stateless deployments.
type Stats interface {
	// AddDocument records one document's unique terms and total length.
	AddDocument(ctx context.Context, terms []string, length int) error
	// DocCount returns the number of observed documents.
	DocCount(ctx context.Context) (int64, error)
	// AvgDocLength returns the mean document length in terms.
	AvgDocLength(ctx context.Context) (float64, error)
	// DocFreq returns, for each requested term, how many documents contain it.
	DocFreq(ctx context.Context, terms []string) (map[string]int64, error)
}

// MemoryStats is an in-memory Stats implementation.
type MemoryStats struct {
	mu       sync.RWMutex
	df       map[string]int64
	docs     int64
	totalLen int64
}

// NewMemoryStats returns empty in-memory corpus statistics.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{df: make(map[string]int64)}
}

func (s *MemoryStats) AddDocument(ctx context.Context, terms []string, length int) error {
	seen := make(map[string]struct{}, len(terms))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		s.df[t]++
	}
	s.docs++
	s.totalLen += int64(length)
	return nil
}

func (s *MemoryStats) DocCount(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs, nil
}

func (s *MemoryStats) AvgDocLength(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.docs == 0 {
		return 0, nil
	}
	return float64(s.totalLen) / float64(s.docs), nil
}

func (s *MemoryStats) DocFreq(ctx context.Context, terms []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(terms))
	for _, t := range terms {
		out[t] = s.df[t]
	}
	return out, nil
}
