package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/media/ffprobe"
	"truvideo/internal/services"
)

func handles(durations ...time.Duration) []capture.SegmentHandle {
	out := make([]capture.SegmentHandle, len(durations))
	for i, d := range durations {
		out[i] = capture.SegmentHandle{Path: fmt.Sprintf("/scratch/Segment_%d.mov", i), Index: i, Duration: d}
	}
	return out
}

func fullProbes(n int) []Probe {
	out := make([]Probe, n)
	for i := range out {
		out[i] = Probe{HasVideo: true, HasAudio: true}
	}
	return out
}

func TestBuildTimelineOffsetsAreCumulative(t *testing.T) {
	segs := handles(2*time.Second, 3*time.Second, 1500*time.Millisecond)
	timeline, err := BuildTimeline(segs, fullProbes(3))
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	wantOffsets := []time.Duration{0, 2 * time.Second, 5 * time.Second}
	for i, entry := range timeline.Entries {
		if entry.Offset != wantOffsets[i] {
			t.Fatalf("entry %d offset = %v, want %v", i, entry.Offset, wantOffsets[i])
		}
		if entry.Segment.Path != segs[i].Path {
			t.Fatalf("entry %d out of order", i)
		}
	}
	if timeline.Total != 6500*time.Millisecond {
		t.Fatalf("total = %v, want 6.5s", timeline.Total)
	}
}

func TestBuildTimelinePrefersProbedDuration(t *testing.T) {
	segs := handles(time.Second, time.Second)
	probes := fullProbes(2)
	probes[0].Duration = 4 * time.Second
	timeline, err := BuildTimeline(segs, probes)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	if timeline.Entries[1].Offset != 4*time.Second || timeline.Total != 5*time.Second {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
}

func TestBuildTimelineRejectsBadInput(t *testing.T) {
	if _, err := BuildTimeline(nil, nil); !errors.Is(err, services.ErrEmptySegments) {
		t.Fatalf("expected ErrEmptySegments, got %v", err)
	}
	if _, err := BuildTimeline(handles(time.Second), []Probe{{}}); !errors.Is(err, services.ErrExport) {
		t.Fatalf("expected ErrExport for trackless segment, got %v", err)
	}
	if _, err := BuildTimeline(handles(0), fullProbes(1)); !errors.Is(err, services.ErrExport) {
		t.Fatalf("expected ErrExport for zero duration, got %v", err)
	}
}

func TestBuildArgsGapsMissingTracks(t *testing.T) {
	segs := handles(2*time.Second, 3*time.Second)
	probes := []Probe{{HasVideo: true, HasAudio: false}, {HasVideo: false, HasAudio: true}}
	timeline, err := BuildTimeline(segs, probes)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	profile := ProfileFromConfig(config.Default().Export)
	args := buildArgs(timeline, profile, "/scratch/FinalCompressedVideo.mp4")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-i /scratch/Segment_0.mov -i /scratch/Segment_1.mov",
		"anullsrc=r=44100:cl=stereo,atrim=duration=2.000",
		"color=c=black:s=1280x720:r=30:d=3.000",
		"[v0][a0][v1][a1]concat=n=2:v=1:a=1[vout][aout]",
		"-movflags +faststart",
		"-fs 500000000",
		"-c:v libx264",
		"-c:a aac",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q:\n%s", want, joined)
		}
	}
	if args[len(args)-1] != "/scratch/FinalCompressedVideo.mp4" {
		t.Fatalf("output must be last, got %q", args[len(args)-1])
	}
}

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	return New(&cfg, nil)
}

func stubProbe(t *testing.T, segDuration time.Duration) {
	t.Helper()
	restore := SetProbeForTests(func(_ context.Context, _ string, path string) (ffprobe.Result, error) {
		if _, err := os.Stat(path); err != nil && filepath.Base(path) == "FinalCompressedVideo.mp4" {
			return ffprobe.Result{}, err
		}
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: fmt.Sprintf("%.3f", segDuration.Seconds()), Size: "100"},
		}, nil
	})
	t.Cleanup(restore)
}

func mergeAndWait(t *testing.T, c *Compositor, ctx context.Context, segs []capture.SegmentHandle) capture.ExportOutcome {
	t.Helper()
	results := make(chan capture.ExportOutcome, 2)
	c.Merge(ctx, segs, func(out capture.ExportOutcome) { results <- out })
	var out capture.ExportOutcome
	select {
	case out = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for export outcome")
	}
	select {
	case extra := <-results:
		t.Fatalf("outcome delivered twice: %+v", extra)
	case <-time.After(20 * time.Millisecond):
	}
	return out
}

func TestMergeEmptyFailsWithoutExport(t *testing.T) {
	c := newTestCompositor(t)
	ran := false
	restore := SetRunnerForTests(func(context.Context, string, []string) error {
		ran = true
		return nil
	})
	defer restore()

	out := mergeAndWait(t, c, context.Background(), nil)
	if out.Status != capture.ExportFailed || !errors.Is(out.Err, services.ErrEmptySegments) {
		t.Fatalf("expected empty-segments failure, got %+v", out)
	}
	if ran {
		t.Fatal("export must not run for an empty segment list")
	}
}

func TestMergeCompletesAndReplacesPreviousOutput(t *testing.T) {
	c := newTestCompositor(t)
	stubProbe(t, 5*time.Second)
	if err := os.WriteFile(c.output, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale output: %v", err)
	}

	var sawStale bool
	var gotArgs []string
	restore := SetRunnerForTests(func(ctx context.Context, _ string, args []string) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := os.Stat(c.output); err == nil {
			sawStale = true
		}
		gotArgs = args
		return os.WriteFile(args[len(args)-1], []byte("merged"), 0o644)
	})
	defer restore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := mergeAndWait(t, c, ctx, handles(4*time.Second, 6*time.Second))
	if out.Status != capture.ExportCompleted {
		t.Fatalf("expected completed, got %+v", out)
	}
	if out.Path != c.output {
		t.Fatalf("unexpected output path %q", out.Path)
	}
	if sawStale {
		t.Fatal("previous output must be removed before export")
	}
	if out.Duration != 5*time.Second {
		t.Fatalf("expected probed output duration, got %v", out.Duration)
	}
	if !strings.Contains(strings.Join(gotArgs, " "), "concat=n=2") {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestMergeReportsCancelledWhenKilled(t *testing.T) {
	c := newTestCompositor(t)
	stubProbe(t, time.Second)
	restore := SetRunnerForTests(func(context.Context, string, []string) error {
		return fmt.Errorf("%w: killed", errSignaled)
	})
	defer restore()

	out := mergeAndWait(t, c, context.Background(), handles(time.Second))
	if out.Status != capture.ExportCancelled {
		t.Fatalf("expected cancelled, got %+v", out)
	}
}

func TestMergeReportsFailure(t *testing.T) {
	c := newTestCompositor(t)
	stubProbe(t, time.Second)
	restore := SetRunnerForTests(func(context.Context, string, []string) error {
		return errors.New("exit status 1")
	})
	defer restore()

	out := mergeAndWait(t, c, context.Background(), handles(time.Second))
	if out.Status != capture.ExportFailed || !errors.Is(out.Err, services.ErrExport) {
		t.Fatalf("expected export failure, got %+v", out)
	}
	if _, err := os.Stat(c.output); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("failed export must not leave an output file")
	}
}

func TestMergeFailsWhenProbeFails(t *testing.T) {
	c := newTestCompositor(t)
	restore := SetProbeForTests(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("moov atom not found")
	})
	defer restore()

	out := mergeAndWait(t, c, context.Background(), handles(time.Second))
	if out.Status != capture.ExportFailed || !errors.Is(out.Err, services.ErrExport) {
		t.Fatalf("expected probe failure, got %+v", out)
	}
}
