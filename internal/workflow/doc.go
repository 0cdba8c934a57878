// Package workflow runs the transcription workers.
//
// The Manager starts a fixed number of workers. Each worker fails jobs whose
// heartbeat expired, claims the highest-priority pending job, and processes
// it: resolve the asset, split it when it exceeds the engine's single-call
// limits, call the engine once per chunk in index order, merge the parts,
// score confidence and complete the job. Cancellation is cooperative and is
// observed between chunks and once after the last call.
//
// Every exit path releases the per-job staging directory and its chunk
// files. Engine and storage errors fail the job with the captured message;
// nothing is retried automatically. Job lifecycle events are published to an
// in-memory EventBus that the daemon streams to websocket subscribers.
package workflow
