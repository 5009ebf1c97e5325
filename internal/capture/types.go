package capture

import (
	"fmt"
	"time"
)

// Track tags the source track of a sample.
type Track int

const (
	TrackVideo Track = iota
	TrackAudio
)

func (t Track) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	default:
		return fmt.Sprintf("track(%d)", int(t))
	}
}

// Sample is one captured buffer. PTS is the capture clock presentation time;
// writers normalize it against their own anchor.
type Sample struct {
	Track   Track
	PTS     time.Duration
	Payload []byte
}

// SegmentHandle is a finished, independently decodable segment file.
type SegmentHandle struct {
	Path     string
	Index    int
	Duration time.Duration
}

// Phase is the single authoritative sequencer state. Pausing and Stopping are
// the windows between requesting a writer finish and its confirmation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhasePausing
	PhasePaused
	PhaseStopping
	PhaseFinalizing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhasePausing:
		return "pausing"
	case PhasePaused:
		return "paused"
	case PhaseStopping:
		return "stopping"
	case PhaseFinalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Flags is the UI-facing view of a Phase.
type Flags struct {
	Recording  bool `json:"recording"`
	CanPause   bool `json:"can_pause"`
	CanResume  bool `json:"can_resume"`
	Processing bool `json:"processing"`
}

// Project derives the published flags from a phase. It is the only place the
// flag combinations are decided.
func Project(p Phase) Flags {
	switch p {
	case PhaseRecording:
		return Flags{Recording: true, CanPause: true}
	case PhasePaused:
		return Flags{CanResume: true}
	case PhaseStopping, PhaseFinalizing:
		return Flags{Processing: true}
	default:
		return Flags{}
	}
}

// ExportStatus is the terminal state of a compositor export.
type ExportStatus int

const (
	ExportCompleted ExportStatus = iota
	ExportFailed
	ExportCancelled
)

func (s ExportStatus) String() string {
	switch s {
	case ExportCompleted:
		return "completed"
	case ExportFailed:
		return "failed"
	case ExportCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("export(%d)", int(s))
	}
}

// ExportOutcome is delivered exactly once per Merge call.
type ExportOutcome struct {
	Status   ExportStatus
	Path     string
	Duration time.Duration
	Err      error
}

// WriterResult is delivered exactly once per started Finish.
type WriterResult struct {
	Handle SegmentHandle
	Err    error
}

// Outcome is the terminal notification for one recording session.
type Outcome struct {
	SessionID string
	Success   bool
	Path      string
	Uploaded  bool
	Err       error
}
