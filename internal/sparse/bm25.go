// Package sparse builds BM25 term-weight vectors for the sparse side of
// hybrid search.
package sparse

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/hyperjump/awase/internal/models"
)

// BM25 parameters (standard defaults).
const (
	k1 = 1.2
	b  = 0.75
)

// Encoder turns text into sparse BM25 vectors. Tokenization runs through
// bleve's English analyzer (lowercase, stopwords, stemming); term weights
// come from corpus statistics, not a hash-bucket placeholder. Only the
// sparse *index* is a stable hash of the analyzed term.
type Encoder struct {
	analyzer analysis.Analyzer
	stats    Stats
}

// NewEncoder creates an encoder over the given corpus statistics.
func NewEncoder(stats Stats) (*Encoder, error) {
	cache := registry.NewCache()
	analyzer, err := cache.AnalyzerNamed(en.AnalyzerName)
	if err != nil {
		return nil, fmt.Errorf("load analyzer: %w", err)
	}
	return &Encoder{analyzer: analyzer, stats: stats}, nil
}

// Terms returns the analyzed terms of text.
func (e *Encoder) Terms(text string) []string {
	stream := e.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// TermIndex maps an analyzed term to its sparse dimension.
func TermIndex(term string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return h.Sum32()
}

// IndexDocument records text in the corpus statistics and returns its
// BM25-weighted sparse vector.
func (e *Encoder) IndexDocument(ctx context.Context, text string) (models.SparseVector, error) {
	terms := e.Terms(text)
	if err := e.stats.AddDocument(ctx, terms, len(terms)); err != nil {
		return models.SparseVector{}, fmt.Errorf("record document stats: %w", err)
	}
	return e.encode(ctx, terms, true)
}

// EncodeQuery returns the BM25-weighted sparse vector for a query. Corpus
// statistics are read, never updated.
func (e *Encoder) EncodeQuery(ctx context.Context, text string) (models.SparseVector, error) {
	return e.encode(ctx, e.Terms(text), false)
}

func (e *Encoder) encode(ctx context.Context, terms []string, lengthNorm bool) (models.SparseVector, error) {
	if len(terms) == 0 {
		return models.SparseVector{}, nil
	}

	tf := make(map[string]float64, len(terms))
	for _, t := range terms {
		tf[t]++
	}

	unique := make([]string, 0, len(tf))
	for t := range tf {
		unique = append(unique, t)
	}
	sort.Strings(unique)

	n, err := e.stats.DocCount(ctx)
	if err != nil {
		return models.SparseVector{}, err
	}
	df, err := e.stats.DocFreq(ctx, unique)
	if err != nil {
		return models.SparseVector{}, err
	}

	norm := k1
	if lengthNorm {
		avg, err := e.stats.AvgDocLength(ctx)
		if err != nil {
			return models.SparseVector{}, err
		}
		if avg > 0 {
			norm = k1 * (1 - b + b*float64(len(terms))/avg)
		}
	}

	vec := models.SparseVector{
		Indices: make([]uint32, 0, len(unique)),
		Values:  make([]float32, 0, len(unique)),
	}
	for _, t := range unique {
		weight := idf(n, df[t]) * tf[t] * (k1 + 1) / (tf[t] + norm)
		vec.Indices = append(vec.Indices, TermIndex(t))
		vec.Values = append(vec.Values, float32(weight))
	}
	return vec, nil
}

// idf is the smoothed BM25 inverse document frequency. With an empty
// corpus every term weighs the same, which keeps sparse search functional
// before any documents are indexed.
func idf(n, df int64) float64 {
	if n == 0 {
		return 1.0
	}
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}
