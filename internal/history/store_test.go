package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"truvideo/internal/capture"
	"truvideo/internal/history"
	"truvideo/internal/services"
	"truvideo/internal/testsupport"
)

func TestSessionLifecycleIsRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SessionStarted(ctx, "session-1", started); err != nil {
		t.Fatalf("SessionStarted: %v", err)
	}
	for i, d := range []time.Duration{4 * time.Second, 6 * time.Second} {
		seg := capture.SegmentHandle{Path: "/scratch/Segment_" + string(rune('a'+i)) + ".mov", Index: i, Duration: d}
		if err := store.SegmentRecorded(ctx, "session-1", seg); err != nil {
			t.Fatalf("SegmentRecorded %d: %v", i, err)
		}
	}
	outcome := capture.Outcome{SessionID: "session-1", Success: true, Uploaded: true, Path: "/scratch/FinalCompressedVideo.mp4"}
	if err := store.SessionFinished(ctx, "session-1", outcome, 10*time.Second); err != nil {
		t.Fatalf("SessionFinished: %v", err)
	}

	session, err := store.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session == nil {
		t.Fatal("expected session")
	}
	if session.State != history.StateDelivered || !session.Uploaded {
		t.Fatalf("unexpected state %+v", session)
	}
	if !session.StartedAt.Equal(started) {
		t.Fatalf("unexpected start time %v", session.StartedAt)
	}
	if len(session.Segments) != 2 || session.SegmentCount != 2 {
		t.Fatalf("expected two segments, got %+v", session.Segments)
	}
	if session.Segments[0].Index != 0 || session.Segments[1].Duration != 6*time.Second {
		t.Fatalf("unexpected segments %+v", session.Segments)
	}
	if session.Recorded() != 10*time.Second || session.FinalDuration != 10*time.Second {
		t.Fatalf("unexpected durations recorded=%v final=%v", session.Recorded(), session.FinalDuration)
	}
	if session.FinalPath != outcome.Path {
		t.Fatalf("unexpected final path %q", session.FinalPath)
	}
}

func TestSessionFinishedClassifiesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	cases := []struct {
		id   string
		err  error
		want history.State
	}{
		{"upload", services.Wrap(services.ErrUpload, "upload", "post", "endpoint returned 500", nil), history.StateUploadFailed},
		{"empty", services.Wrap(services.ErrEmptySegments, "compositor", "merge", "", nil), history.StateFailed},
		{"writer", errors.New("boom"), history.StateFailed},
	}
	for _, tc := range cases {
		testsupport.StartSession(t, store, tc.id)
		if err := store.SessionFinished(ctx, tc.id, capture.Outcome{SessionID: tc.id, Err: tc.err}, 0); err != nil {
			t.Fatalf("%s: SessionFinished: %v", tc.id, err)
		}
		session, err := store.Get(ctx, tc.id)
		if err != nil || session == nil {
			t.Fatalf("%s: Get: %v", tc.id, err)
		}
		if session.State != tc.want {
			t.Fatalf("%s: state = %s, want %s", tc.id, session.State, tc.want)
		}
		if session.ErrorMessage != tc.err.Error() {
			t.Fatalf("%s: unexpected error message %q", tc.id, session.ErrorMessage)
		}
	}
}

func TestSessionFinishedUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.SessionFinished(context.Background(), "missing", capture.Outcome{Success: true}, 0); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestMarkInterruptedOnlyTouchesRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.StartSession(t, store, "crashed")
	testsupport.StartSession(t, store, "done")
	if err := store.SessionFinished(ctx, "done", capture.Outcome{Success: true, Uploaded: true}, time.Second); err != nil {
		t.Fatalf("SessionFinished: %v", err)
	}

	count, err := store.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one interrupted session, got %d", count)
	}
	crashed, _ := store.Get(ctx, "crashed")
	if crashed.State != history.StateInterrupted {
		t.Fatalf("unexpected state %s", crashed.State)
	}
	done, _ := store.Get(ctx, "done")
	if done.State != history.StateDelivered {
		t.Fatalf("finished session must not change, got %s", done.State)
	}
}

func TestListOrdersNewestFirstAndLimits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		if err := store.SessionStarted(ctx, id, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("SessionStarted: %v", err)
		}
	}

	sessions, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "third" || sessions[1].ID != "second" {
		t.Fatalf("unexpected order: %+v", sessions)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected three sessions, got %d", len(all))
	}

	removed, err := store.Clear(ctx)
	if err != nil || removed != 3 {
		t.Fatalf("Clear: removed=%d err=%v", removed, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.StartSession(t, store, "persisted")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	session, err := reopened.Get(context.Background(), "persisted")
	if err != nil || session == nil {
		t.Fatalf("expected persisted session, got %v err=%v", session, err)
	}
	if reopened.Path() != cfg.HistoryPath() {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestSegmentPathsFiltersByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.StartSession(t, store, "failed")
	testsupport.StartSession(t, store, "delivered")
	for _, id := range []string{"failed", "delivered"} {
		seg := capture.SegmentHandle{Path: "/scratch/Segment_" + id + ".mov", Duration: time.Second}
		if err := store.SegmentRecorded(ctx, id, seg); err != nil {
			t.Fatalf("SegmentRecorded: %v", err)
		}
	}
	if err := store.SessionFinished(ctx, "failed", capture.Outcome{Err: errors.New("export failed")}, 0); err != nil {
		t.Fatalf("SessionFinished: %v", err)
	}
	if err := store.SessionFinished(ctx, "delivered", capture.Outcome{Success: true, Uploaded: true}, time.Second); err != nil {
		t.Fatalf("SessionFinished: %v", err)
	}

	paths, err := store.SegmentPaths(ctx, history.StateFailed, history.StateInterrupted)
	if err != nil {
		t.Fatalf("SegmentPaths: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/scratch/Segment_failed.mov" {
		t.Fatalf("unexpected paths %v", paths)
	}
	if none, err := store.SegmentPaths(ctx); err != nil || len(none) != 0 {
		t.Fatalf("expected no paths without states, got %v %v", none, err)
	}
}
