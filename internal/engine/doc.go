// Package engine defines the speech-to-text adapter contract used by the
// transcription workers.
//
// An Adapter performs exactly one external call per audio handle and returns
// times relative to the start of that handle; offsetting into the parent
// asset is the merge step's job. Concrete adapters live under
// internal/services (whisperapi, whisperx) and are selected at daemon start
// from the [engine] config section.
package engine
