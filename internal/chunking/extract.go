package chunking

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func extractArgs(source string, audioIndex int, start, duration float64, dest string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-t", strconv.FormatFloat(duration, 'f', 3, 64),
		"-i", source,
	}
	if audioIndex >= 0 {
		args = append(args, "-map", fmt.Sprintf("0:%d", audioIndex))
	}
	return append(args,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
}

// ExtractSegment writes [start, start+duration) of the source's audio to dest
// as a mono 16 kHz WAV file.
func ExtractSegment(ctx context.Context, ffmpegBinary, source string, audioIndex int, start, duration float64, dest string) error {
	if duration <= 0 {
		return fmt.Errorf("extract segment: invalid duration %v", duration)
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, extractArgs(source, audioIndex, start, duration, dest)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract segment: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
