package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/notifications"
	"truvideo/internal/services"
)

func TestNewNtfyReturnsNilWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	if notifications.NewNtfy(&cfg) != nil {
		t.Fatal("expected nil publisher without topic")
	}
	var n *notifications.Ntfy
	if err := n.SessionFinished(context.Background(), capture.Outcome{Success: true}); err != nil {
		t.Fatalf("nil publisher should be a no-op, got %v", err)
	}
}

func TestNtfyFormatsOutcomes(t *testing.T) {
	tests := []struct {
		name           string
		outcome        capture.Outcome
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "uploaded",
			outcome:       capture.Outcome{Success: true, Uploaded: true, Path: "/tmp/truvideo/FinalCompressedVideo.mp4"},
			expectTitle:   "TruVideo - Uploaded",
			expectMessage: "✅ Video uploaded: FinalCompressedVideo.mp4",
			expectTags:    "truvideo,upload,completed",
		},
		{
			name: "upload failed",
			outcome: capture.Outcome{
				Path: "/tmp/truvideo/FinalCompressedVideo.mp4",
				Err:  services.Wrap(services.ErrUpload, "upload", "post", "endpoint returned 500", nil),
			},
			expectTitle:    "TruVideo - Recording Failed",
			expectMessage:  "❌ Error with upload: upload error: upload: post: endpoint returned 500\nFile kept: /tmp/truvideo/FinalCompressedVideo.mp4",
			expectTags:     "truvideo,error,alert",
			expectPriority: "high",
		},
		{
			name:           "nothing recorded",
			outcome:        capture.Outcome{Err: services.Wrap(services.ErrEmptySegments, "compositor", "merge", "nothing was recorded", nil)},
			expectTitle:    "TruVideo - Recording Failed",
			expectMessage:  "❌ Error with recording (nothing captured): no segments to merge: compositor: merge: nothing was recorded",
			expectTags:     "truvideo,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			ntfy := notifications.NewNtfy(&cfg)
			if err := ntfy.SessionFinished(context.Background(), tc.outcome); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewNtfy(&cfg).Test(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

type countingBridge struct {
	mu       sync.Mutex
	flags    []capture.Flags
	outcomes []capture.Outcome
}

func (b *countingBridge) Publish(f capture.Flags) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags = append(b.flags, f)
}

func (b *countingBridge) Notify(_ context.Context, o capture.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outcomes = append(b.outcomes, o)
}

func TestNewFansOutToExtraBridges(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	extra := &countingBridge{}
	bridge := notifications.New(&cfg, nil, extra)
	if len(bridge) != 3 {
		t.Fatalf("expected log, ntfy and extra bridges, got %d", len(bridge))
	}

	bridge.Publish(capture.Project(capture.PhaseRecording))
	bridge.Notify(context.Background(), capture.Outcome{Err: errors.New("boom")})

	if len(extra.flags) != 1 || !extra.flags[0].Recording {
		t.Fatalf("unexpected flags %+v", extra.flags)
	}
	if len(extra.outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(extra.outcomes))
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one ntfy push for the outcome only, got %d", hits.Load())
	}
}
