package qdrant

import (
	"testing"
	"time"

	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/vectorstore"
)

func TestBuildFilterEmpty(t *testing.T) {
	if f := buildFilter(vectorstore.Filter{}); f != nil {
		t.Errorf("expected nil filter for empty input, got %v", f)
	}
}

func TestBuildFilterConditions(t *testing.T) {
	f := buildFilter(vectorstore.Filter{UserID: "u1", FileName: "report.pdf"})
	if f == nil {
		t.Fatal("expected non-nil filter")
	}
	if len(f.Must) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(f.Must))
	}
	first := f.Must[0].GetField()
	if first == nil || first.Key != "user_id" {
		t.Errorf("expected first condition on user_id, got %v", first)
	}
	if got := first.Match.GetKeyword(); got != "u1" {
		t.Errorf("expected keyword match u1, got %q", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	doc := &models.VectorDocument{
		ID:        "3f6f2f64-0000-0000-0000-000000000000",
		Text:      "chunk body",
		UserID:    "alice",
		Title:     "report.pdf (Part 2/3)",
		Source:    "alice/report.pdf#chunk_1",
		FileName:  "report.pdf",
		Page:      4,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Metadata: models.DocumentMetadata{
			Category:    "document",
			Language:    "en",
			ChunkIndex:  1,
			TotalChunks: 3,
			IsChunk:     true,
			ParentFile:  "report.pdf",
		},
		Extra: models.DocumentExtra{Summary: "chunk body", URL: "https://example.com"},
	}

	got := fromPayload(doc.ID, toPayload(doc))

	if got.Text != doc.Text || got.UserID != doc.UserID || got.Title != doc.Title {
		t.Errorf("core fields mismatch: %+v", got)
	}
	if got.Source != doc.Source || got.FileName != doc.FileName || got.Page != doc.Page {
		t.Errorf("location fields mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(doc.Timestamp) {
		t.Errorf("timestamp mismatch: got %v want %v", got.Timestamp, doc.Timestamp)
	}
	if got.Metadata != doc.Metadata {
		t.Errorf("metadata mismatch: got %+v want %+v", got.Metadata, doc.Metadata)
	}
	if got.Extra != doc.Extra {
		t.Errorf("extra mismatch: got %+v want %+v", got.Extra, doc.Extra)
	}

	chunk := got.Chunk()
	if !chunk.IsChunk || chunk.ChunkIndex != 1 || chunk.TotalChunks != 3 || chunk.ParentFile != "report.pdf" {
		t.Errorf("chunk info not preserved through payload: %+v", chunk)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{Collection: "docs"}); err == nil {
		t.Error("expected error for missing url")
	}
}
