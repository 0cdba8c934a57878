// Package daemon coordinates the long-running scribed process.
//
// It wires configuration, the job store, the workflow manager and the
// caller-facing JobService into a single lifecycle guarded by a flock-based
// single-instance lock, and serves the JSON HTTP API plus the websocket job
// event stream. Transcription logic lives in workflow and its collaborators;
// this package only starts, stops and exposes them.
package daemon
