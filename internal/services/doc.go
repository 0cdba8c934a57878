// Package services defines shared utilities consumed by the transcription
// workers, the engine adapters, and the caller-facing API.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the error taxonomy callers see (validation, not found, engine,
//     storage, cancelled).
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error handling, observability) stays uniform across the daemon.
package services
