package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"truvideo/internal/services"
	"truvideo/internal/upload"
)

func writeVideo(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "FinalCompressedVideo.mp4")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestUploadSendsMultipartFile(t *testing.T) {
	content := bytes.Repeat([]byte("frame"), 4096)
	path := writeVideo(t, content)

	var gotName, gotType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := upload.NewClient(server.URL, 5*time.Second, nil)
	if err := client.Upload(context.Background(), path); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotName != "video.mp4" {
		t.Fatalf("unexpected filename %q", gotName)
	}
	if gotType != "video/mp4" {
		t.Fatalf("unexpected part content type %q", gotType)
	}
	if !bytes.Equal(gotBody, content) {
		t.Fatalf("uploaded body mismatch: got %d bytes want %d", len(gotBody), len(content))
	}
}

func TestUploadTreatsNon200AsFailure(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusCreated, http.StatusNoContent} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := upload.NewClient(server.URL, 5*time.Second, nil)
			err := client.Upload(context.Background(), writeVideo(t, []byte("data")))
			if !errors.Is(err, services.ErrUpload) {
				t.Fatalf("expected ErrUpload, got %v", err)
			}
			if !strings.Contains(err.Error(), strconv.Itoa(status)) {
				t.Fatalf("expected status in error, got %v", err)
			}
		})
	}
}

func TestUploadReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := upload.NewClient(url, time.Second, nil)
	err := client.Upload(context.Background(), writeVideo(t, []byte("data")))
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestUploadMissingFileSendsNothing(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := upload.NewClient(server.URL, time.Second, nil)
	err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if called {
		t.Fatal("no request expected for a missing file")
	}
}
