// Package logging assembles structured slog loggers and formatting helpers used
// across TruVideo components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so capture code can tag log
// lines with session IDs and segment indexes. When a log directory is
// configured every record is also appended as JSON to truvideo.log. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
