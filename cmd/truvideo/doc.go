// Package main hosts the TruVideo CLI entrypoint and command graph.
//
// The Cobra command tree wires the capture sequencer to its segment writer,
// compositor, uploader, and notification bridges for interactive recording,
// and exposes session history, environment checks, one-off uploads, and
// configuration scaffolding. Configuration resolution and logger setup live
// in the shared command context so subcommands only deal with presentation.
package main
