// Package compositor joins finished segments into one timeline and exports
// the delivery file.
//
// BuildTimeline is pure: segment i starts where segment i-1 ended. A segment
// missing one track contributes a generated gap (black frames or silence) of
// its own duration so both tracks stay aligned. The export is a single ffmpeg
// pass that concatenates, scales to the delivery profile, and stops writing
// at the configured byte bound.
package compositor
