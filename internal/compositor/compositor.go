package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/logging"
	"truvideo/internal/media/ffprobe"
	"truvideo/internal/services"
)

// errSignaled marks an export whose ffmpeg process was killed by a signal.
var errSignaled = errors.New("ffmpeg terminated by signal")

// probeMedia is the ffprobe function used for segment and output inspection.
var probeMedia = ffprobe.Inspect

// runFFmpeg executes the export.
var runFFmpeg = func(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return fmt.Errorf("%w: %s", errSignaled, status.Signal())
		}
	}
	return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(stderr.String()))
}

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := probeMedia
	probeMedia = fn
	return func() {
		probeMedia = previous
	}
}

// SetRunnerForTests overrides the ffmpeg runner during tests.
func SetRunnerForTests(fn func(context.Context, string, []string) error) func() {
	previous := runFFmpeg
	runFFmpeg = fn
	return func() {
		runFFmpeg = previous
	}
}

// Compositor merges segments into the delivery file.
type Compositor struct {
	ffmpeg  string
	ffprobe string
	profile Profile
	output  string
	logger  *slog.Logger
}

// New builds a compositor from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Compositor {
	return &Compositor{
		ffmpeg:  cfg.FFmpegBinary(),
		ffprobe: cfg.FFprobeBinary(),
		profile: ProfileFromConfig(cfg.Export),
		output:  cfg.FinalOutputPath(),
		logger:  logging.NewComponentLogger(logger, "compositor"),
	}
}

// Merge implements capture.Compositor. The export runs on a context detached
// from ctx's cancellation and done is invoked exactly once.
func (c *Compositor) Merge(ctx context.Context, segments []capture.SegmentHandle, done func(capture.ExportOutcome)) {
	if len(segments) == 0 {
		done(capture.ExportOutcome{
			Status: capture.ExportFailed,
			Err:    services.Wrap(services.ErrEmptySegments, "compositor", "merge", "nothing was recorded", nil),
		})
		return
	}
	ordered := append([]capture.SegmentHandle(nil), segments...)
	exportCtx := context.WithoutCancel(ctx)
	go func() {
		done(c.export(exportCtx, ordered))
	}()
}

func (c *Compositor) export(ctx context.Context, segments []capture.SegmentHandle) capture.ExportOutcome {
	logger := logging.WithContext(ctx, c.logger)

	probes := make([]Probe, len(segments))
	for i, seg := range segments {
		result, err := probeMedia(ctx, c.ffprobe, seg.Path)
		if err != nil {
			return failed(services.Wrap(services.ErrExport, "compositor", "probe segment", seg.Path, err))
		}
		probes[i] = Probe{Duration: result.Duration(), HasVideo: result.HasVideo(), HasAudio: result.HasAudio()}
		if !probes[i].HasVideo || !probes[i].HasAudio {
			logging.WarnWithContext(logger, "segment missing a track", "segment_track_missing", "gap inserted in merged file",
				logging.String("path", seg.Path), logging.Bool("video", probes[i].HasVideo), logging.Bool("audio", probes[i].HasAudio))
		}
	}

	timeline, err := BuildTimeline(segments, probes)
	if err != nil {
		return failed(err)
	}

	if err := os.Remove(c.output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return failed(services.Wrap(services.ErrExport, "compositor", "remove previous output", c.output, err))
	}

	logger.Info("export started",
		logging.Int("segments", len(timeline.Entries)),
		logging.Duration("timeline", timeline.Total),
		logging.String("output", c.output),
	)
	if err := runFFmpeg(ctx, c.ffmpeg, buildArgs(timeline, c.profile, c.output)); err != nil {
		_ = os.Remove(c.output)
		if errors.Is(err, errSignaled) {
			logger.Warn("export cancelled", logging.Error(err))
			return capture.ExportOutcome{Status: capture.ExportCancelled, Err: services.Wrap(services.ErrExport, "compositor", "export", "cancelled", err)}
		}
		return failed(services.Wrap(services.ErrExport, "compositor", "export", "", err))
	}

	duration := timeline.Total
	if result, err := probeMedia(ctx, c.ffprobe, c.output); err == nil {
		if d := result.Duration(); d > 0 {
			duration = d
		}
		if c.profile.MaxBytes > 0 && result.SizeBytes() >= c.profile.MaxBytes {
			logging.WarnWithContext(logger, "export reached size bound", "export_truncated", "merged file ends early",
				logging.Int64("max_bytes", c.profile.MaxBytes))
		}
	} else {
		logger.Debug("output probe failed", logging.Error(err))
	}

	logger.Info("export completed", logging.String("output", c.output), logging.Duration("duration", duration))
	return capture.ExportOutcome{Status: capture.ExportCompleted, Path: c.output, Duration: duration}
}

func failed(err error) capture.ExportOutcome {
	return capture.ExportOutcome{Status: capture.ExportFailed, Err: err}
}
