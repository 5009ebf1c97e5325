// Package logs reads back the JSON copy of the TruVideo log.
//
// It returns the last N records with bounded memory, follows the file as new
// records arrive (tolerating size-based rotation), and decodes each line into
// a Record so callers can filter by session or level and print compact
// console-style lines. Lines that are not JSON records are passed through
// verbatim.
package logs
