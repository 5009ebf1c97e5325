package testsupport

import (
	"context"
	"testing"
	"time"

	"truvideo/internal/config"
	"truvideo/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartSession records a session start for tests.
func StartSession(t testing.TB, store *history.Store, id string) {
	t.Helper()

	if err := store.SessionStarted(context.Background(), id, time.Now()); err != nil {
		t.Fatalf("store.SessionStarted: %v", err)
	}
}
