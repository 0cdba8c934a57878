// Package whisperapi implements the engine adapter for OpenAI-compatible
// /audio/transcriptions endpoints (hosted Whisper, faster-whisper-server,
// LocalAI and similar).
//
// Requests ask for verbose_json with segment and word timestamps so the
// merge and confidence steps have avg_logprob, no_speech_prob and word
// timings to work with.
package whisperapi
