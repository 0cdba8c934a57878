// Package ffprobe wraps ffprobe's JSON output for the facts the transcription
// pipeline needs: total duration, container size, and which stream carries
// audio.
package ffprobe
