package capture

import (
	"context"
	"time"
)

// SampleSource pushes live samples into sink until ctx is done. The sink
// returns false when the sample was dropped.
type SampleSource interface {
	Run(ctx context.Context, sink func(Sample) bool) error
}

// SegmentWriter converts a slice of the live stream into one segment file.
type SegmentWriter interface {
	// Accept routes a sample to its track. It returns an error only when the
	// writer no longer takes samples; backpressure drops are silent.
	Accept(Sample) error
	// Finish requests asynchronous completion. It returns false, without
	// invoking done, when the writer never started writing.
	Finish(done func(WriterResult)) bool
	// Discard removes the output of a writer that never produced a segment.
	// A writer that failed before finishing returns its failure.
	Discard() error
	Path() string
}

// WriterFactory opens a writer for the segment at dest.
type WriterFactory interface {
	Open(ctx context.Context, dest string, index int) (SegmentWriter, error)
}

// Compositor concatenates segments and exports the delivery file. done is
// invoked exactly once; the export is not cancellable once started.
type Compositor interface {
	Merge(ctx context.Context, segments []SegmentHandle, done func(ExportOutcome))
}

// Uploader transmits the final file once.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// Bridge surfaces state to the user interface. Calls arrive serially from a
// single publisher goroutine. The sequencer loop blocks once that goroutine
// falls a queue's worth of events behind, so Notify should return within a
// request timeout.
type Bridge interface {
	Publish(Flags)
	Notify(ctx context.Context, outcome Outcome)
}

// Journal records session lifecycle for later inspection. Failures are
// logged and never affect the recording.
type Journal interface {
	SessionStarted(ctx context.Context, sessionID string, at time.Time) error
	SegmentRecorded(ctx context.Context, sessionID string, segment SegmentHandle) error
	SessionFinished(ctx context.Context, sessionID string, outcome Outcome, duration time.Duration) error
}
