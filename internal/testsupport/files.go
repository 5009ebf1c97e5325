package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with size bytes of filler content, creating parent
// directories as needed. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("size %s: %v", path, err)
	}
}

// WriteSegments creates count fake segment files in dir and returns their
// paths in order.
func WriteSegments(t testing.TB, dir string, count int) []string {
	t.Helper()
	paths := make([]string, count)
	for i := range paths {
		paths[i] = filepath.Join(dir, "Segment_test_"+string(rune('a'+i))+".mov")
		WriteFile(t, paths[i], 1024)
	}
	return paths
}
