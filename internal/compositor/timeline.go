package compositor

import (
	"fmt"
	"time"

	"truvideo/internal/capture"
	"truvideo/internal/services"
)

// Probe is what the compositor needs to know about one segment file.
type Probe struct {
	Duration time.Duration
	HasVideo bool
	HasAudio bool
}

// Entry places one segment on the merged timeline.
type Entry struct {
	Segment  capture.SegmentHandle
	Offset   time.Duration
	Duration time.Duration
	HasVideo bool
	HasAudio bool
}

// Timeline is the ordered composition handed to the exporter.
type Timeline struct {
	Entries []Entry
	Total   time.Duration
}

// BuildTimeline lays segments end to end in the given order. probes[i]
// describes segments[i]; a probed duration overrides the writer's estimate.
func BuildTimeline(segments []capture.SegmentHandle, probes []Probe) (Timeline, error) {
	if len(segments) == 0 {
		return Timeline{}, services.Wrap(services.ErrEmptySegments, "compositor", "build timeline", "", nil)
	}
	if len(probes) != len(segments) {
		return Timeline{}, services.Wrap(services.ErrExport, "compositor", "build timeline",
			fmt.Sprintf("%d probes for %d segments", len(probes), len(segments)), nil)
	}

	timeline := Timeline{Entries: make([]Entry, 0, len(segments))}
	var offset time.Duration
	for i, seg := range segments {
		probe := probes[i]
		if !probe.HasVideo && !probe.HasAudio {
			return Timeline{}, services.Wrap(services.ErrExport, "compositor", "build timeline",
				fmt.Sprintf("segment %s has no tracks", seg.Path), nil)
		}
		duration := probe.Duration
		if duration <= 0 {
			duration = seg.Duration
		}
		if duration <= 0 {
			return Timeline{}, services.Wrap(services.ErrExport, "compositor", "build timeline",
				fmt.Sprintf("segment %s has no duration", seg.Path), nil)
		}
		timeline.Entries = append(timeline.Entries, Entry{
			Segment:  seg,
			Offset:   offset,
			Duration: duration,
			HasVideo: probe.HasVideo,
			HasAudio: probe.HasAudio,
		})
		offset += duration
	}
	timeline.Total = offset
	return timeline, nil
}
