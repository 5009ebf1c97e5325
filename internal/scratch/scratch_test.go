package scratch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"truvideo/internal/logging"
	"truvideo/internal/scratch"
	"truvideo/internal/testsupport"
)

func writeAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestListClassifiesFiles(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, "Segment_a.mov"), 10, 2*time.Hour)
	writeAged(t, filepath.Join(dir, "Segment_b.mov"), 20, time.Hour)
	writeAged(t, filepath.Join(dir, "FinalCompressedVideo.mp4"), 30, 0)
	writeAged(t, filepath.Join(dir, "notes.txt"), 1, 0)
	if err := os.Mkdir(filepath.Join(dir, "Segment_dir.mov"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entries, err := scratch.List(dir, "FinalCompressedVideo.mp4")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "Segment_a.mov" || entries[0].Kind != scratch.KindSegment {
		t.Fatalf("expected oldest segment first, got %+v", entries[0])
	}
	if entries[2].Kind != scratch.KindExport || entries[2].Size != 30 {
		t.Fatalf("unexpected export entry %+v", entries[2])
	}
}

func TestListReportsWrittenSegments(t *testing.T) {
	dir := t.TempDir()
	paths := testsupport.WriteSegments(t, dir, 3)

	entries, err := scratch.List(dir, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != len(paths) {
		t.Fatalf("expected %d entries, got %d", len(paths), len(entries))
	}
	for _, e := range entries {
		if e.Kind != scratch.KindSegment || e.Size != 1024 {
			t.Fatalf("unexpected entry %+v", e)
		}
	}
}

func TestListMissingDirectory(t *testing.T) {
	for _, dir := range []string{"", "   ", filepath.Join(t.TempDir(), "absent")} {
		entries, err := scratch.List(dir, "x.mp4")
		if err != nil || len(entries) != 0 {
			t.Fatalf("expected empty list for %q, got %v %v", dir, entries, err)
		}
	}
}

func TestCleanStaleRemovesOldSegmentsOnly(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "Segment_old.mov")
	kept := filepath.Join(dir, "Segment_kept.mov")
	recent := filepath.Join(dir, "Segment_recent.mov")
	export := filepath.Join(dir, "FinalCompressedVideo.mp4")
	writeAged(t, old, 100, 48*time.Hour)
	writeAged(t, kept, 100, 48*time.Hour)
	writeAged(t, recent, 100, time.Minute)
	writeAged(t, export, 100, 48*time.Hour)

	result := scratch.CleanStale(context.Background(), dir, 24*time.Hour, map[string]struct{}{kept: {}}, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old || result.Freed != 100 {
		t.Fatalf("unexpected result %+v", result)
	}
	for _, path := range []string{kept, recent, export} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestSaveCopiesAndVerifies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "FinalCompressedVideo.mp4")
	if err := os.WriteFile(src, []byte("merged video bytes"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	dst := filepath.Join(dir, "archive", "session.mp4")

	if err := scratch.Save(src, dst); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "merged video bytes" {
		t.Fatalf("unexpected copy %q", got)
	}

	if err := scratch.Save(filepath.Join(dir, "missing.mp4"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
}
