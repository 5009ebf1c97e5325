package history

import "time"

// State is the lifecycle position of a recorded session.
type State string

const (
	StateRecording    State = "recording"
	StateDelivered    State = "delivered"
	StateUploadFailed State = "upload_failed"
	StateFailed       State = "failed"
	StateInterrupted  State = "interrupted"
)

// Segment is one finished span of a session.
type Segment struct {
	Index      int
	Path       string
	Duration   time.Duration
	RecordedAt time.Time
}

// Session is one row of the ledger.
type Session struct {
	ID            string
	State         State
	StartedAt     time.Time
	UpdatedAt     time.Time
	Segments      []Segment
	SegmentCount  int
	FinalPath     string
	FinalDuration time.Duration
	Uploaded      bool
	ErrorMessage  string
}

// Recorded sums the durations of the session's segments.
func (s Session) Recorded() time.Duration {
	var total time.Duration
	for _, seg := range s.Segments {
		total += seg.Duration
	}
	return total
}
