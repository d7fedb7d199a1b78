package blob

import (
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	return store
}

func TestUploadDownload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := []byte("hello blob")
	if err := store.Upload(ctx, "alice/notes.txt", content); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	got, err := store.Download(ctx, "alice/notes.txt")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(got) != "hello blob" {
		t.Errorf("unexpected content: %q", got)
	}

	obj, err := store.Stat(ctx, "alice/notes.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if obj.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), obj.Size)
	}
}

func TestDownloadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Download(context.Background(), "alice/missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upload(ctx, "alice/a.txt", []byte("v1")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if err := store.Upload(ctx, "alice/a.txt", []byte("version two")); err != nil {
		t.Fatalf("second Upload failed: %v", err)
	}

	got, err := store.Download(ctx, "alice/a.txt")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(got) != "version two" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestListByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"alice/a.txt", "alice/b.txt", "bob/c.txt"} {
		if err := store.Upload(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Upload %s failed: %v", key, err)
		}
	}

	objects, err := store.List(ctx, "alice/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects for alice, got %d", len(objects))
	}
	for _, obj := range objects {
		if obj.Key != "alice/a.txt" && obj.Key != "alice/b.txt" {
			t.Errorf("unexpected key: %s", obj.Key)
		}
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 objects total, got %d", len(all))
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upload(ctx, "alice/a.txt", []byte("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if err := store.Delete(ctx, "alice/a.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Download(ctx, "alice/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, "alice/a.txt"); err != nil {
		t.Errorf("repeated delete should not fail: %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../outside.txt", "/etc/passwd", "a/../../b"} {
		if err := store.Upload(ctx, key, []byte("x")); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}
