package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMatchExtension(t *testing.T) {
	w := NewWatcher(nil, []string{".txt", "pdf"}, nil, nil, zap.NewNop())
	for _, path := range []string{"/a/b.txt", "/a/b.PDF", "c.pdf"} {
		if !w.matchExtension(path) {
			t.Errorf("expected %s to match", path)
		}
	}
	for _, path := range []string{"/a/b.jpg", "/a/b", "b.txt.bak"} {
		if w.matchExtension(path) {
			t.Errorf("expected %s not to match", path)
		}
	}

	all := NewWatcher(nil, nil, nil, nil, zap.NewNop())
	if !all.matchExtension("/anything.xyz") {
		t.Error("empty extension list must match everything")
	}
}

func TestWatcherReportsSettledFile(t *testing.T) {
	root := t.TempDir()
	got := make(chan string, 8)
	w := NewWatcher([]string{root}, []string{".txt"}, func(path string) {
		got <- path
	}, nil, zap.NewNop())
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(root, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case p := <-got:
		if p != path {
			t.Errorf("got %s, want %s", p, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event for created file")
	}
}

func TestWatcherDebouncesRepeatedWrites(t *testing.T) {
	root := t.TempDir()
	got := make(chan string, 8)
	w := NewWatcher([]string{root}, nil, func(path string) {
		got <- path
	}, nil, zap.NewNop())
	w.debounce = 150 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(root, "note.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("revision"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("no event after writes settled")
	}
	// The rapid writes above collapse into one callback.
	select {
	case p := <-got:
		t.Errorf("expected a single debounced event, got extra for %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewUserDirectory(t *testing.T) {
	root := t.TempDir()
	got := make(chan string, 8)
	w := NewWatcher([]string{root}, []string{".txt"}, func(path string) {
		got <- path
	}, nil, zap.NewNop())
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	userDir := filepath.Join(root, "alice")
	if err := os.Mkdir(userDir, 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	// Give the watcher a moment to pick up the new directory.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(userDir, "doc.txt")
	if err := os.WriteFile(path, []byte("dropped"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case p := <-got:
		if p != path {
			t.Errorf("got %s, want %s", p, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event for file in new user directory")
	}
}
