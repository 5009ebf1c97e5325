package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/logging"
	"truvideo/internal/services"
)

// ErrWriterFinished is returned by Accept once Finish has been requested.
var ErrWriterFinished = errors.New("segment writer finished")

// WriteState tracks a writer through its lifecycle.
type WriteState int

const (
	StateIdle WriteState = iota
	StateAwaitingFirstSample
	StateWriting
	StateFinishing
	StateFinished
	StateFailed
)

func (s WriteState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstSample:
		return "awaiting_first_sample"
	case StateWriting:
		return "writing"
	case StateFinishing:
		return "finishing"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Factory opens ffmpeg-backed writers that share one format.
type Factory struct {
	binary string
	format Format
	logger *slog.Logger
}

// NewFactory builds a writer factory from configuration.
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		binary: cfg.FFmpegBinary(),
		format: FormatFromConfig(cfg.Capture),
		logger: logging.NewComponentLogger(logger, "segment"),
	}
}

// NewFactoryWithFormat builds a factory for an explicit format.
func NewFactoryWithFormat(binary string, format Format, logger *slog.Logger) *Factory {
	return &Factory{binary: binary, format: format, logger: logging.NewComponentLogger(logger, "segment")}
}

// Open implements capture.WriterFactory.
func (f *Factory) Open(ctx context.Context, dest string, index int) (capture.SegmentWriter, error) {
	return Open(ctx, f.binary, dest, index, f.format, logging.WithContext(ctx, f.logger))
}

// Writer records one segment.
type Writer struct {
	binary string
	path   string
	index  int
	format Format
	logger *slog.Logger

	mu         sync.Mutex
	state      WriteState
	anchor     time.Duration
	end        time.Duration
	frameBytes int
	video      *trackQueue
	audio      *trackQueue
	proc       *process
	failure    error
}

// Open validates the format and creates the output container at dest.
func Open(_ context.Context, binary, dest string, index int, format Format, logger *slog.Logger) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrWriterConfig, "segment", "create output", dest, err)
	}
	if err := file.Close(); err != nil {
		return nil, services.Wrap(services.ErrWriterConfig, "segment", "create output", dest, err)
	}
	frameBytes, _ := format.FrameSize()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		binary:     binary,
		path:       dest,
		index:      index,
		format:     format,
		logger:     logger,
		state:      StateAwaitingFirstSample,
		frameBytes: frameBytes,
	}, nil
}

// Path returns the output file.
func (w *Writer) Path() string { return w.path }

// State reports the current lifecycle state.
func (w *Writer) State() WriteState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Dropped reports samples refused by full track queues.
func (w *Writer) Dropped() (video, audio int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.video != nil {
		video = w.video.dropped.Load()
	}
	if w.audio != nil {
		audio = w.audio.dropped.Load()
	}
	return video, audio
}

// Accept queues a sample for its track. The first sample anchors the
// segment and launches ffmpeg.
func (w *Writer) Accept(sample capture.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateAwaitingFirstSample:
		if !w.validPayload(sample) {
			return nil
		}
		if err := w.launch(); err != nil {
			w.state = StateFailed
			w.failure = err
			w.logger.Error("segment writer launch failed", logging.String("path", w.path), logging.Error(err))
			return err
		}
		w.anchor = sample.PTS
		w.end = sample.PTS
		w.state = StateWriting
		w.logger.Debug("segment writing started", logging.String("path", w.path), logging.Duration("anchor", w.anchor))
	case StateWriting:
	case StateFailed:
		return services.Wrap(services.ErrWriteFinalize, "segment", "accept", "writer failed", nil)
	default:
		return ErrWriterFinished
	}

	if sample.PTS < w.anchor || !w.validPayload(sample) {
		return nil
	}
	var end time.Duration
	var queued bool
	switch sample.Track {
	case capture.TrackVideo:
		queued = w.video.offer(sample.Payload)
		end = sample.PTS + w.format.FrameDuration()
	case capture.TrackAudio:
		queued = w.audio.offer(sample.Payload)
		end = sample.PTS + w.format.AudioDuration(len(sample.Payload))
	}
	if queued && end > w.end {
		w.end = end
	}
	return nil
}

func (w *Writer) validPayload(sample capture.Sample) bool {
	switch sample.Track {
	case capture.TrackVideo:
		return len(sample.Payload) == w.frameBytes
	case capture.TrackAudio:
		align := w.format.AudioBlockAlign()
		return len(sample.Payload) > 0 && len(sample.Payload)%align == 0
	default:
		return false
	}
}

func (w *Writer) launch() error {
	depth := w.format.queueDepth()
	w.video = newTrackQueue(depth)
	w.audio = newTrackQueue(depth)
	proc, err := startProcess(w.binary, buildArgs(w.format, w.path), w.video, w.audio)
	if err != nil {
		return services.Wrap(services.ErrWriterConfig, "segment", "start ffmpeg", w.path, err)
	}
	w.proc = proc
	return nil
}

// Finish closes the track inputs and waits for ffmpeg in the background.
// It returns false, and never calls done, when writing never started.
func (w *Writer) Finish(done func(capture.WriterResult)) bool {
	w.mu.Lock()
	if w.state != StateWriting {
		if w.state == StateAwaitingFirstSample {
			w.state = StateFinished
		}
		w.mu.Unlock()
		return false
	}
	w.state = StateFinishing
	proc := w.proc
	duration := w.end - w.anchor
	w.mu.Unlock()

	go func() {
		result := w.complete(proc, duration)
		if done != nil {
			done(result)
		}
	}()
	return true
}

func (w *Writer) complete(proc *process, duration time.Duration) capture.WriterResult {
	w.video.close()
	w.audio.close()
	err := proc.wait()
	if err == nil {
		err = checkOutput(w.path)
	}
	if err != nil {
		if rmErr := os.Remove(w.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			w.logger.Debug("partial segment cleanup failed", logging.String("path", w.path), logging.Error(rmErr))
		}
		w.setState(StateFailed)
		return capture.WriterResult{Err: services.Wrap(services.ErrWriteFinalize, "segment", "finish", w.path, err)}
	}
	w.setState(StateFinished)
	vDrop, aDrop := w.video.dropped.Load(), w.audio.dropped.Load()
	if vDrop > 0 || aDrop > 0 {
		logging.WarnWithContext(w.logger, "samples dropped while track was busy", "samples_dropped", "segment has visible or audible gaps",
			logging.String("path", w.path), logging.Int64("video_dropped", vDrop), logging.Int64("audio_dropped", aDrop))
	}
	return capture.WriterResult{Handle: capture.SegmentHandle{Path: w.path, Index: w.index, Duration: duration}}
}

// Discard removes the output of a writer that never produced a segment. For
// a writer whose ffmpeg failed to launch it returns that failure.
func (w *Writer) Discard() error {
	w.mu.Lock()
	state := w.state
	failure := w.failure
	if state == StateAwaitingFirstSample {
		w.state = StateFinished
	}
	w.mu.Unlock()
	if state == StateWriting || state == StateFinishing {
		return fmt.Errorf("discard %s: writer is %s", w.path, state)
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(failure, fmt.Errorf("discard %s: %w", w.path, err))
	}
	return failure
}

func (w *Writer) setState(s WriteState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
