// Package config loads, normalizes, and validates TruVideo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TRUVIDEO_UPLOAD_ENDPOINT. The Config type centralizes the capture format,
// delivery profile, and upload endpoint so the CLI and the pipeline discover
// them in one pass.
package config
