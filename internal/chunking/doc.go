// Package chunking decides whether an asset fits in one engine call and, when
// it does not, cuts it into contiguous time slices materialized as mono 16 kHz
// WAV extracts.
//
// Chunk files belong to the job that created them. Set.Release deletes them
// and is safe to call more than once, so workers defer it right after Split.
package chunking
