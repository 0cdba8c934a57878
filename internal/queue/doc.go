// Package queue persists transcription jobs in SQLite and owns their
// lifecycle.
//
// The Store is both the durable job repository and the priority work queue.
// Pending jobs are claimed with a single compare-and-set UPDATE, so exactly
// one worker ever processes a given job, and every other status change is a
// guarded UPDATE that only applies from the expected source status:
//
//	pending -> processing -> completed | failed | cancelled
//	pending -> cancelled
//
// Completed transcripts and their confidence reports live in the same
// database so a job and its result are removed together.
//
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package queue
