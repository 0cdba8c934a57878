// Package transcript holds the time-aligned transcript model and the pure
// functions that reassemble per-chunk engine output and score it.
//
// Merge shifts every chunk's segments and words by the cumulative duration of
// the chunks before it, so the merged timeline matches the source asset.
// Confidence derives per-segment and overall scores from the engine's
// log-probability and no-speech signals without any I/O.
package transcript
