// Package scratch manages the working directory segments and merged exports
// are written to.
//
// Segments normally disappear once a merge succeeds, but interrupted or failed
// sessions and keep_segments leave them behind. List reports what is there,
// CleanStale removes old segment files, and Save copies the merged export out
// of scratch with integrity verification before the next session overwrites it.
package scratch
