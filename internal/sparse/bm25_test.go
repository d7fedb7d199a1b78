package sparse

import (
	"context"
	"testing"
)

func TestTerms_analyzed(t *testing.T) {
	e, err := NewEncoder(NewMemoryStats())
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	terms := e.Terms("The Quick brown foxes")
	// Stopword "the" removed, terms lowercased and stemmed.
	for _, term := range terms {
		if term == "the" || term == "The" {
			t.Errorf("stopword survived: %v", terms)
		}
	}
	if len(terms) == 0 {
		t.Fatal("no terms produced")
	}
}

func TestEncodeQuery_deterministic(t *testing.T) {
	e, err := NewEncoder(NewMemoryStats())
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	ctx := context.Background()
	a, err := e.EncodeQuery(ctx, "hybrid vector search")
	if err != nil {
		t.Fatalf("EncodeQuery: %v", err)
	}
	b, _ := e.EncodeQuery(ctx, "hybrid vector search")
	if len(a.Indices) != len(b.Indices) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Indices), len(b.Indices))
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] || a.Values[i] != b.Values[i] {
			t.Fatalf("entry %d differs", i)
		}
	}
}

func TestIndexDocument_updatesStats(t *testing.T) {
	stats := NewMemoryStats()
	e, err := NewEncoder(stats)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	ctx := context.Background()
	if _, err := e.IndexDocument(ctx, "quarterly findings about revenue"); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if _, err := e.IndexDocument(ctx, "weather report for tomorrow"); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	n, _ := stats.DocCount(ctx)
	if n != 2 {
		t.Errorf("doc count = %d", n)
	}
	avg, _ := stats.AvgDocLength(ctx)
	if avg <= 0 {
		t.Errorf("avg doc length = %f", avg)
	}
}

func TestEncodeQuery_rareTermWeighsMore(t *testing.T) {
	stats := NewMemoryStats()
	e, err := NewEncoder(stats)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	ctx := context.Background()
	// "common" appears in every document, "rare" in one.
	docs := []string{
		"common words everywhere rare",
		"common words again",
		"common words repeated",
	}
	for _, d := range docs {
		if _, err := e.IndexDocument(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	weightOf := func(term string) float32 {
		vec, err := e.EncodeQuery(ctx, term)
		if err != nil {
			t.Fatalf("EncodeQuery(%q): %v", term, err)
		}
		if len(vec.Values) != 1 {
			t.Fatalf("expected 1 entry for %q, got %d", term, len(vec.Values))
		}
		return vec.Values[0]
	}
	if weightOf("rare") <= weightOf("common") {
		t.Errorf("rare term should outweigh common term: rare=%f common=%f",
			weightOf("rare"), weightOf("common"))
	}
}

func TestEncodeQuery_empty(t *testing.T) {
	e, err := NewEncoder(NewMemoryStats())
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	vec, err := e.EncodeQuery(context.Background(), "")
	if err != nil {
		t.Fatalf("EncodeQuery: %v", err)
	}
	if !vec.IsEmpty() {
		t.Errorf("expected empty vector, got %d entries", len(vec.Indices))
	}
}

func TestTermIndex_stable(t *testing.T) {
	if TermIndex("findings") != TermIndex("findings") {
		t.Error("TermIndex must be stable")
	}
	if TermIndex("findings") == TermIndex("revenue") {
		t.Error("distinct terms should (almost surely) map to distinct indices")
	}
}
