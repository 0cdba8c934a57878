// Package logging assembles the structured slog loggers shared by the Scribe
// daemon and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag log lines with job IDs, pipeline stages, workers,
// and correlation IDs. A no-op logger is provided for tests and for wiring
// code that cannot fail.
package logging
