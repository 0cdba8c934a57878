// Package api is the caller-facing surface of the transcription pipeline.
//
// JobService implements createJob, getStatus, cancelJob, exportJob and
// performQA on top of the durable job repository, plus the list, stats and
// delete operations used by the CLI and the document lifecycle. It also
// defines the transport DTOs shared by the daemon's HTTP handlers and the
// scribe CLI.
//
// Validation and not-found errors are returned synchronously and never touch
// job state. Export and QA requests against a job that has not completed are
// rejected with a not-found class "job not ready" error.
//
// DTOs use camelCase JSON tags. Timestamps are RFC3339 with milliseconds.
package api
