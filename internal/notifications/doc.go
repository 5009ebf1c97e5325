// Package notifications is the presentation side of the capture pipeline.
//
// A Bridge receives every published flag set and the single terminal outcome
// of each recording session. LogBridge writes both to the structured log,
// NtfyBridge pushes terminal outcomes to an ntfy topic when one is
// configured, and Fanout combines several bridges. New assembles the set the
// configuration asks for.
package notifications
