// Package services defines shared utilities consumed by the capture pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs and segment indexes for logging.
//   - Structured error markers plus the Wrap helper so every failure carries
//     one classification (configuration, writer, export, upload, ...).
//
// Use these helpers when wiring new components so failure reporting stays
// uniform across the pipeline.
package services
