// Package history keeps a SQLite ledger of recording sessions.
//
// Store implements capture.Journal: the sequencer reports when a session
// starts, each segment it finishes, and the terminal outcome. The CLI reads
// the ledger back for the sessions table. Sessions still marked recording
// when a new one starts were cut short by a crash and are marked interrupted.
package history
