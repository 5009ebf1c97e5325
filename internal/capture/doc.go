// Package capture owns the record/pause/resume/stop state machine.
//
// A Sequencer runs a single serial loop that receives live samples, user
// commands, and the asynchronous completions of segment writers, the
// compositor, and the uploader. Every paused or resumed span is written by
// its own SegmentWriter into a separate file; stopping hands the ordered
// segment list to the Compositor and the merged file to the Uploader.
//
// Platform primitives (sample production, muxing, export, upload, UI) are
// reached only through the narrow interfaces declared here, so the state
// machine can be exercised with in-memory doubles.
package capture
