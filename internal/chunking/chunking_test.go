package chunking_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/assets"
	"scribe/internal/chunking"
	"scribe/internal/media/ffprobe"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

func fakeProbe(duration string) chunking.ProbeFunc {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{Index: 0, CodecType: "video"}, {Index: 1, CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: duration},
		}, nil
	}
}

type recordedExtract struct {
	start, duration float64
	audioIndex      int
}

func recordingExtract(calls *[]recordedExtract, failAt int) chunking.ExtractFunc {
	return func(_ context.Context, _, _ string, audioIndex int, start, duration float64, dest string) error {
		if failAt >= 0 && len(*calls) == failAt {
			return errors.New("ffmpeg exploded")
		}
		*calls = append(*calls, recordedExtract{start: start, duration: duration, audioIndex: audioIndex})
		return os.WriteFile(dest, []byte("RIFF"), 0o644)
	}
}

func TestPlan(t *testing.T) {
	chunks := chunking.Plan(2400, 600)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	var sum float64
	for i, c := range chunks {
		if c.Index != i || c.Start != float64(i)*600 || c.Duration != 600 {
			t.Fatalf("unexpected chunk %d: %#v", i, c)
		}
		sum += c.Duration
	}
	if sum != 2400 {
		t.Fatalf("chunks should cover the asset, got %v", sum)
	}

	chunks = chunking.Plan(1250.5, 600)
	if len(chunks) != 3 || math.Abs(chunks[2].Duration-50.5) > 1e-9 || chunks[2].Start != 1200 {
		t.Fatalf("unexpected remainder plan: %#v", chunks)
	}
	if chunking.Plan(0, 600) != nil {
		t.Fatal("expected no chunks for empty asset")
	}
}

func TestNeedsSplit(t *testing.T) {
	limits := chunking.Limits{MaxSeconds: 600, MaxBytes: 25 << 20}
	cases := []struct {
		duration float64
		size     int64
		want     bool
	}{
		{600, 1 << 20, false},
		{600.5, 1 << 20, true},
		{30, 26 << 20, true},
		{30, 25 << 20, false},
	}
	for _, tc := range cases {
		if got := chunking.NeedsSplit(tc.duration, tc.size, limits); got != tc.want {
			t.Errorf("NeedsSplit(%v, %d) = %v, want %v", tc.duration, tc.size, got, tc.want)
		}
	}
	if chunking.NeedsSplit(1e9, 1<<40, chunking.Limits{}) {
		t.Fatal("zero limits should never split")
	}
}

func TestSplitFortyMinuteAsset(t *testing.T) {
	workDir := t.TempDir()
	source := filepath.Join(workDir, "lecture.mp4")
	testsupport.WriteMediaFile(t, source, 1024)

	var calls []recordedExtract
	splitter := &chunking.FFmpegSplitter{
		ChunkDuration: 600,
		Limits:        chunking.Limits{MaxSeconds: 600, MaxBytes: 25 << 20},
		Probe:         fakeProbe("2400.0"),
		Extract:       recordingExtract(&calls, -1),
	}

	set, err := splitter.Split(context.Background(), &assets.Asset{Path: source, Size: 1024}, workDir)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if set.Len() != 4 || !set.Split || set.Total != 2400 {
		t.Fatalf("unexpected set: %#v", set)
	}
	for i, call := range calls {
		if call.start != float64(i)*600 || call.duration != 600 || call.audioIndex != 1 {
			t.Fatalf("unexpected extract call %d: %#v", i, call)
		}
	}
	for _, chunk := range set.Chunks {
		if _, err := os.Stat(chunk.Path); err != nil {
			t.Fatalf("chunk file missing: %v", err)
		}
	}

	if err := set.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := set.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	for _, chunk := range set.Chunks {
		if _, err := os.Stat(chunk.Path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected chunk removed, stat err=%v", err)
		}
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("source asset must survive release: %v", err)
	}
}

func TestSplitSmallAssetUsesSource(t *testing.T) {
	workDir := t.TempDir()
	source := filepath.Join(workDir, "memo.m4a")
	testsupport.WriteMediaFile(t, source, 512)

	splitter := &chunking.FFmpegSplitter{
		ChunkDuration: 600,
		Limits:        chunking.Limits{MaxSeconds: 600, MaxBytes: 25 << 20},
		Probe:         fakeProbe("95.2"),
		Extract: func(context.Context, string, string, int, float64, float64, string) error {
			t.Fatal("small asset must not be extracted")
			return nil
		},
	}
	set, err := splitter.Split(context.Background(), &assets.Asset{Path: source, Size: 512}, workDir)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if set.Split || set.Len() != 1 || set.Chunks[0].Path != source || set.Chunks[0].Duration != 95.2 {
		t.Fatalf("unexpected single set: %#v", set)
	}
	if err := set.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("release must not remove source: %v", err)
	}
}

func TestSplitCleansUpOnExtractFailure(t *testing.T) {
	workDir := t.TempDir()
	var calls []recordedExtract
	splitter := &chunking.FFmpegSplitter{
		ChunkDuration: 600,
		Limits:        chunking.Limits{MaxSeconds: 600},
		Probe:         fakeProbe("1800"),
		Extract:       recordingExtract(&calls, 2),
	}
	_, err := splitter.Split(context.Background(), &assets.Asset{Path: "/src.wav"}, workDir)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk 3/3") {
		t.Fatalf("expected failing chunk in message, got %v", err)
	}
	entries, _ := os.ReadDir(workDir)
	if len(entries) != 0 {
		t.Fatalf("expected work dir to be empty after failure, found %d entries", len(entries))
	}
}

func TestSplitRejectsSilentMedia(t *testing.T) {
	splitter := &chunking.FFmpegSplitter{
		Probe: func(context.Context, string, string) (ffprobe.Result, error) {
			return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}, Format: ffprobe.Format{Duration: "10"}}, nil
		},
	}
	_, err := splitter.Split(context.Background(), &assets.Asset{Path: "/v.mp4"}, t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
