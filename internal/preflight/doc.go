// Package preflight checks that a recording session can succeed before it
// starts: ffmpeg and ffprobe are installed, the scratch and state
// directories are writable, the scratch volume has room for segments plus
// the export, and the upload endpoint answers.
//
// The record command refuses to start when a required check fails; the
// doctor command prints every result.
package preflight
