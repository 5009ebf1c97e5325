// Package segment writes one span of the live capture stream into its own
// container file.
//
// Each Writer drives a single ffmpeg process. Video frames and PCM audio are
// handed to ffmpeg over two pipes (fd 3 and fd 4) through bounded per-track
// queues; a full queue means the track is not ready and the sample is dropped.
// The first accepted sample anchors the segment timeline and launches the
// process. Finish closes the pipes and waits for ffmpeg on a background
// goroutine, reporting the finished segment exactly once.
package segment
