package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
qdrant:
  url: "http://localhost:6334"
  collection: "docs"
metadata:
  database_path: "./files.db"
search:
  dense_weight: 0.6
  sparse_weight: 0.4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Qdrant.Collection != "docs" {
		t.Errorf("collection = %q", cfg.Qdrant.Collection)
	}
	if cfg.Search.DenseWeight != 0.6 || cfg.Search.SparseWeight != 0.4 {
		t.Errorf("weights = %f/%f", cfg.Search.DenseWeight, cfg.Search.SparseWeight)
	}
	// "./files.db" is relative to the config dir.
	if cfg.Metadata.DatabasePath != filepath.Join(dir, "files.db") {
		t.Errorf("database_path = %q", cfg.Metadata.DatabasePath)
	}
}

func TestLoad_defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.DenseWeight != 0.7 || cfg.Search.SparseWeight != 0.3 {
		t.Errorf("default weights = %f/%f", cfg.Search.DenseWeight, cfg.Search.SparseWeight)
	}
	if cfg.Pipeline.ChunkSize != 1000 || cfg.Pipeline.ChunkOverlap != 200 {
		t.Errorf("chunking defaults = %d/%d", cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("native dimensions = %d", cfg.Embedding.Dimensions)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config")
	}
}
