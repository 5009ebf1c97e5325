package scratch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"truvideo/internal/logging"
)

// Kind classifies a scratch file.
type Kind string

const (
	KindSegment Kind = "segment"
	KindExport  Kind = "export"
)

// Entry describes one file in the scratch directory.
type Entry struct {
	Name    string
	Path    string
	Kind    Kind
	ModTime time.Time
	Size    int64
}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Freed   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// IsSegmentName reports whether name looks like a segment file.
func IsSegmentName(name string) bool {
	return strings.HasPrefix(name, "Segment_") && strings.HasSuffix(name, ".mov")
}

// List returns segment files and the merged export in dir, oldest first.
// exportName is the fixed file name of the merged export.
func List(dir, exportName string) ([]Entry, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var kind Kind
		switch {
		case IsSegmentName(entry.Name()):
			kind = KindSegment
		case exportName != "" && entry.Name() == exportName:
			kind = KindExport
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:    entry.Name(),
			Path:    filepath.Join(dir, entry.Name()),
			Kind:    kind,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.Before(out[j].ModTime) })
	return out, nil
}

// CleanStale removes segment files in dir last modified more than maxAge ago.
// Paths in keep are never removed. The merged export is left alone.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, keep map[string]struct{}, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	entries, err := List(dir, "")
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.ModTime.Before(cutoff) {
			continue
		}
		if _, kept := keep[entry.Path]; kept {
			continue
		}
		if err := os.Remove(entry.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: entry.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale segment", "scratch_cleanup_failed", "disk space not reclaimed",
				logging.String("path", entry.Path),
				logging.Error(err),
			)
			continue
		}
		result.Removed = append(result.Removed, entry.Path)
		result.Freed += entry.Size
		if logger != nil {
			logger.Info("removed stale segment",
				logging.String("path", entry.Path),
				logging.Duration("age", time.Since(entry.ModTime)),
				logging.String(logging.FieldEventType, "scratch_cleanup"),
			)
		}
	}
	return result
}

// Save copies src to dst and verifies size and SHA-256 of what was written.
// dst is removed on mismatch.
func Save(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("source %s is a directory", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create destination directory: %w", err)
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
