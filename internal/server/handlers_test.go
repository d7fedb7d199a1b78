package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/blob"
	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/embedding"
	"github.com/hyperjump/awase/internal/metadata"
	"github.com/hyperjump/awase/internal/pipeline"
	"github.com/hyperjump/awase/internal/reconcile"
	"github.com/hyperjump/awase/internal/search"
	"github.com/hyperjump/awase/internal/sparse"
	"github.com/hyperjump/awase/internal/vectorstore/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()

	meta, err := metadata.Open(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("metadata.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = meta.Close() })

	blobs, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	encoder, err := sparse.NewEncoder(meta)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	vectors := memory.NewStore()
	embedder := embedding.NewHashEmbedder(64)

	p := pipeline.New(embedder, encoder, vectors, config.PipelineConfig{
		ChunkSize: 1000, ChunkOverlap: 200, ChunkThreshold: 2000, MaxConcurrency: 2,
	}, logger)
	ingestor := pipeline.NewIngestor(p, blobs, meta, logger)
	searchSvc := search.NewService(embedder, encoder, vectors, config.SearchConfig{
		DefaultLimit: 10, MaxLimit: 100, DenseWeight: 0.7, SparseWeight: 0.3,
	}, logger)
	reconciler := reconcile.New(meta, blobs, vectors, p, logger)

	return NewServer(searchSvc, ingestor, reconciler, meta, &config.ServerConfig{Port: 8080}, logger)
}

func uploadFile(t *testing.T, router http.Handler, userID, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("user_id", userID); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandleUploadAndSearch(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	w := uploadFile(t, router, "alice", "notes.txt", "hybrid vector search notes")
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d, body %s", w.Code, w.Body.String())
	}
	var uploadResp struct {
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&uploadResp); err != nil {
		t.Fatal(err)
	}
	if uploadResp.Status != string(pipeline.StatusEmbedded) {
		t.Errorf("expected embedded, got %s", uploadResp.Status)
	}

	body, _ := json.Marshal(search.Request{UserID: "alice", Query: "vector search"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("search status: got %d, body %s", w.Code, w.Body.String())
	}
	var searchResp search.Response
	if err := json.NewDecoder(w.Body).Decode(&searchResp); err != nil {
		t.Fatal(err)
	}
	if searchResp.Total == 0 {
		t.Error("expected search results")
	}
}

func TestHandleSearchRequiresUserID(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(search.Request{Query: "anything"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleSearchUnsupportedMode(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(search.Request{UserID: "alice", Query: "x", Mode: "fuzzy"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleListAndDeleteFile(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	if w := uploadFile(t, router, "alice", "notes.txt", "content"); w.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/files?user_id=alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("list status: got %d", w.Code)
	}
	var listResp struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listResp); err != nil {
		t.Fatal(err)
	}
	if listResp.Total != 1 {
		t.Errorf("expected 1 file, got %d", listResp.Total)
	}

	r = httptest.NewRequest(http.MethodDelete, "/api/v1/files?user_id=alice&file_name=notes.txt", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status: got %d, body %s", w.Code, w.Body.String())
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/files?user_id=alice", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if err := json.NewDecoder(w.Body).Decode(&listResp); err != nil {
		t.Fatal(err)
	}
	if listResp.Total != 0 {
		t.Errorf("expected 0 files after delete, got %d", listResp.Total)
	}
}

func TestHandleSyncReport(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	if w := uploadFile(t, router, "alice", "notes.txt", "content"); w.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sync/report?user_id=alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("report status: got %d, body %s", w.Code, w.Body.String())
	}
	var report struct {
		Summary map[string]int `json:"summary"`
	}
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Summary["SYNCED"] != 1 {
		t.Errorf("expected 1 synced file, got %v", report.Summary)
	}
}

func TestHandleSyncRepairDefaultsToDryRun(t *testing.T) {
	srv := newTestServer(t)
	body := []byte(`{"user_id":"alice"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sync/repair", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("repair status: got %d, body %s", w.Code, w.Body.String())
	}
	var result struct {
		DryRun bool `json:"dry_run"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.DryRun {
		t.Error("repair must default to dry run")
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}
