package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scribe/internal/assets"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/services"
)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// ExtractFunc materializes one slice of a media file.
type ExtractFunc func(ctx context.Context, ffmpegBinary, source string, audioIndex int, start, duration float64, dest string) error

// FFmpegSplitter probes assets with ffprobe and cuts oversized ones with ffmpeg.
type FFmpegSplitter struct {
	FFmpegBinary  string
	FFprobeBinary string
	ChunkDuration float64
	Limits        Limits
	Logger        *slog.Logger

	Probe   ProbeFunc
	Extract ExtractFunc
}

// Split probes the asset and returns either a single-call set or one WAV per slice.
// On failure every file it created is removed before returning.
func (s *FFmpegSplitter) Split(ctx context.Context, asset *assets.Asset, workDir string) (*Set, error) {
	probe := s.Probe
	if probe == nil {
		probe = ffprobe.Inspect
	}
	extract := s.Extract
	if extract == nil {
		extract = ExtractSegment
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(s.Logger, "chunking"))

	info, err := probe(ctx, s.FFprobeBinary, asset.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "chunking", "probe", "failed to inspect source media", err)
	}
	if !info.HasAudio() {
		return nil, services.Wrap(services.ErrValidation, "chunking", "probe", "source media has no audio stream", nil)
	}
	total := info.DurationSeconds()
	if total <= 0 {
		return nil, services.Wrap(services.ErrStorage, "chunking", "probe", "could not determine media duration", nil)
	}
	size := asset.Size
	if size <= 0 {
		size = info.SizeBytes()
	}

	if !NeedsSplit(total, size, s.Limits) {
		logger.Debug("asset fits in a single engine call",
			logging.Float64("duration_seconds", total),
			logging.Int64("size_bytes", size),
		)
		return Single(asset, total), nil
	}

	chunkDir, err := os.MkdirTemp(workDir, "chunks-")
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "chunking", "create chunk dir", "failed to create chunk directory", err)
	}
	chunks := Plan(total, s.ChunkDuration)
	set := NewSet(chunks, total, chunkDir)
	audioIndex := info.FirstAudioIndex()
	for i := range set.Chunks {
		chunk := &set.Chunks[i]
		chunk.Path = filepath.Join(chunkDir, fmt.Sprintf("chunk-%03d.wav", chunk.Index))
		if err := extract(ctx, s.FFmpegBinary, asset.Path, audioIndex, chunk.Start, chunk.Duration, chunk.Path); err != nil {
			_ = set.Release()
			return nil, services.Wrap(
				services.ErrStorage,
				"chunking",
				"extract",
				fmt.Sprintf("failed to extract chunk %d/%d", chunk.Index+1, len(set.Chunks)),
				err,
			)
		}
	}

	logger.Info("asset split into chunks",
		logging.Int("chunk_count", len(set.Chunks)),
		logging.Float64("duration_seconds", total),
		logging.Float64("chunk_seconds", s.ChunkDuration),
		logging.String(logging.FieldEventType, "chunking_split"),
	)
	return set, nil
}
