package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDoRequestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"user_id is required"}`))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := doRequest(req)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "user_id is required") {
		t.Errorf("error should carry status and body: %v", err)
	}
}

func TestUploadFileSendsMultipart(t *testing.T) {
	var gotUser, gotName, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotUser = r.FormValue("user_id")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		buf := make([]byte, header.Size)
		n, _ := file.Read(buf)
		gotContent = string(buf[:n])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"embedded"}`))
	}))
	defer srv.Close()

	resp, err := uploadFile(srv.URL, "alice", "notes.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("uploadFile failed: %v", err)
	}
	if !strings.Contains(string(resp), "embedded") {
		t.Errorf("unexpected response: %s", resp)
	}
	if gotUser != "alice" || gotName != "notes.txt" || gotContent != "hello" {
		t.Errorf("server saw (%q, %q, %q)", gotUser, gotName, gotContent)
	}
}
