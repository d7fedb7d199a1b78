package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/blob"
	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/embedding"
	"github.com/hyperjump/awase/internal/metadata"
	"github.com/hyperjump/awase/internal/sparse"
	"github.com/hyperjump/awase/internal/vectorstore/memory"
)

func newTestIngestor(t *testing.T) (*Ingestor, blob.Store, *metadata.Store, *memory.Store) {
	t.Helper()
	encoder, err := sparse.NewEncoder(sparse.NewMemoryStats())
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	vectors := memory.NewStore()
	p := New(embedding.NewHashEmbedder(64), encoder, vectors, config.PipelineConfig{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		ChunkThreshold: 2000,
		MaxConcurrency: 2,
	}, zap.NewNop())

	blobs, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	meta, err := metadata.Open(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("metadata.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = meta.Close() })

	return NewIngestor(p, blobs, meta, zap.NewNop()), blobs, meta, vectors
}

func TestIngestWritesAllStores(t *testing.T) {
	ing, blobs, meta, vectors := newTestIngestor(t)
	ctx := context.Background()

	result, err := ing.Ingest(ctx, "alice", "notes.txt", "text/plain", []byte("some notes"))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Status != StatusEmbedded {
		t.Errorf("expected StatusEmbedded, got %s", result.Status)
	}

	if _, err := blobs.Download(ctx, "alice/notes.txt"); err != nil {
		t.Errorf("blob missing: %v", err)
	}
	rec, err := meta.GetFile(ctx, "alice/notes.txt")
	if err != nil {
		t.Fatalf("metadata record missing: %v", err)
	}
	if rec.FileSize != int64(len("some notes")) || !rec.IsActive {
		t.Errorf("unexpected record: %+v", rec)
	}
	if vectors.Len() != 1 {
		t.Errorf("expected 1 point, got %d", vectors.Len())
	}
}

func TestIngestUnsupportedStillRegisters(t *testing.T) {
	ing, blobs, meta, vectors := newTestIngestor(t)
	ctx := context.Background()

	result, err := ing.Ingest(ctx, "alice", "photo.jpg", "image/jpeg", []byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("expected StatusSkipped, got %s", result.Status)
	}

	// Blob and metadata are written even when embedding is skipped.
	if _, err := blobs.Download(ctx, "alice/photo.jpg"); err != nil {
		t.Errorf("blob missing: %v", err)
	}
	if _, err := meta.GetFile(ctx, "alice/photo.jpg"); err != nil {
		t.Errorf("metadata record missing: %v", err)
	}
	if vectors.Len() != 0 {
		t.Errorf("unsupported file must not be indexed, got %d points", vectors.Len())
	}
}

func TestDeleteRemovesAllStores(t *testing.T) {
	ing, blobs, meta, vectors := newTestIngestor(t)
	ctx := context.Background()

	if _, err := ing.Ingest(ctx, "alice", "notes.txt", "text/plain", []byte("some notes")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := ing.Delete(ctx, "alice", "notes.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := blobs.Download(ctx, "alice/notes.txt"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("expected blob gone, got %v", err)
	}
	if _, err := meta.GetFile(ctx, "alice/notes.txt"); !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("expected record gone, got %v", err)
	}
	if vectors.Len() != 0 {
		t.Errorf("expected points gone, got %d", vectors.Len())
	}

	// Deleting again is safe.
	if err := ing.Delete(ctx, "alice", "notes.txt"); err != nil {
		t.Errorf("repeat delete should succeed: %v", err)
	}
}
