// Package search runs dense, sparse and hybrid retrieval over the vector
// index and fuses the result lists.
package search

import (
	"sort"

	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/vectorstore"
)

// FusedResult holds one document with its fused and per-signal scores.
type FusedResult struct {
	Document    *models.VectorDocument
	Score       float64
	DenseScore  float64
	SparseScore float64
}

// Fuse merges dense and sparse result lists by point ID and scores each
// document as denseWeight*dense + sparseWeight*sparse. A document found
// by only one signal keeps a zero score for the other. Results come back
// sorted by fused score, ties broken by ID for determinism.
func Fuse(dense, sparse []vectorstore.ScoredDocument, denseWeight, sparseWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult, len(dense)+len(sparse))
	for _, r := range dense {
		scoreMap[r.Document.ID] = &FusedResult{
			Document:   r.Document,
			DenseScore: r.Score,
		}
	}
	for _, r := range sparse {
		if result, exists := scoreMap[r.Document.ID]; exists {
			result.SparseScore = r.Score
		} else {
			scoreMap[r.Document.ID] = &FusedResult{
				Document:    r.Document,
				SparseScore: r.Score,
			}
		}
	}

	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = denseWeight*result.DenseScore + sparseWeight*result.SparseScore
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	return results
}
