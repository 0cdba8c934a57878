// Package deps reports whether the external binaries scribe shells out to
// (ffmpeg, ffprobe, and uvx for the whisperx engine) are installed.
package deps
