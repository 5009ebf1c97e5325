package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"truvideo/internal/testsupport"
)

func TestUploadCommandSendsFile(t *testing.T) {
	var received atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		n, _ := io.Copy(io.Discard, file)
		received.Store(n)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithUploadEndpoint(server.URL))
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	out, _, err := runCLI(t, []string{"upload", path}, env.configPath, "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "[OK]")
	if received.Load() != 10 {
		t.Fatalf("server received %d bytes, want 10", received.Load())
	}
}

func TestUploadCommandReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	out, _, err := runCLI(t, []string{"upload", path, "--endpoint", server.URL}, env.configPath, "")
	if err == nil {
		t.Fatal("expected upload error")
	}
	requireContains(t, out, "[ERROR]")
}

func TestUploadCommandRequiresExistingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"upload"}, env.configPath, ""); err == nil {
		t.Fatal("expected error when no merged output exists")
	}
}
