package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/awase/internal/config"
)

func TestHashEmbedder_deterministic(t *testing.T) {
	e := NewHashEmbedder(384)
	a, err := e.Embed(context.Background(), "the same text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), "the same text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_distinctTexts(t *testing.T) {
	e := NewHashEmbedder(384)
	a, _ := e.Embed(context.Background(), "alpha")
	b, _ := e.Embed(context.Background(), "beta")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should get different embeddings")
	}
}

func TestHashEmbedder_unitNorm(t *testing.T) {
	e := NewHashEmbedder(384)
	vec, _ := e.Embed(context.Background(), "normalize me")
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("squared norm = %f, want ~1", sum)
	}
}

func TestFixedDim_pads(t *testing.T) {
	e := NewFixedDim(NewHashEmbedder(384), config.IndexDimensions)
	vec, err := e.Embed(context.Background(), "pad me")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != config.IndexDimensions {
		t.Fatalf("got %d dims, want %d", len(vec), config.IndexDimensions)
	}
	for _, v := range vec[384:] {
		if v != 0 {
			t.Fatal("padding should be zeros")
		}
	}
	if e.Dimensions() != config.IndexDimensions {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}

func TestFixedDim_truncates(t *testing.T) {
	e := NewFixedDim(NewHashEmbedder(2048), 1024)
	vec, err := e.Embed(context.Background(), "truncate me")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 1024 {
		t.Fatalf("got %d dims", len(vec))
	}
}

func TestEmbed_emptyStringIsValid(t *testing.T) {
	e := NewFixedDim(NewHashEmbedder(384), config.IndexDimensions)
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("empty string should not error: %v", err)
	}
	if len(vec) != config.IndexDimensions {
		t.Errorf("got %d dims", len(vec))
	}
}

func TestCache_evictsOldest(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v[0] != 3 {
		t.Error("newest entry should be present")
	}
}
