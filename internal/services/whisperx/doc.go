// Package whisperx implements the engine adapter that runs WhisperX locally
// through uvx.
//
// Each call writes WhisperX's JSON output into a scratch directory next to
// the audio handle, converts it into an engine result and removes the
// scratch directory again. WhisperX reports per-word alignment scores but no
// segment log probabilities, so a segment's avgLogProb is derived from the
// mean log score of its words.
package whisperx
