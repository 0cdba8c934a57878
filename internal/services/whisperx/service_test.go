package whisperx

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"scribe/internal/engine"
	"scribe/internal/services"
)

const sampleOutput = `{
  "language": "en",
  "segments": [
    {"text": " Welcome back.", "start": 0.5, "end": 2.0,
     "words": [{"word": "Welcome", "start": 0.5, "end": 1.0, "score": 0.9}, {"word": "back.", "start": 1.0, "end": 2.0, "score": 0.5}]},
    {"text": " 42", "start": 2.4, "end": 3.1,
     "words": [{"word": "42"}]}
  ]
}`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk-001.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func argValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func TestTranscribeLoadsJSONOutput(t *testing.T) {
	source := writeSource(t)
	var outputDir string
	svc := NewService(Config{Model: "large-v3-turbo"})
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != UVXCommand {
			t.Fatalf("unexpected command %s", name)
		}
		if args[slices.Index(args, "whisperx")+1] != source {
			t.Fatalf("source not passed to whisperx: %v", args)
		}
		if argValue(args, "--model") != "large-v3-turbo" || argValue(args, "--output_format") != "json" {
			t.Fatalf("unexpected args %v", args)
		}
		if argValue(args, "--language") != "fr" || argValue(args, "--initial_prompt") != "Lyon" {
			t.Fatalf("hints not forwarded: %v", args)
		}
		if argValue(args, "--device") != CPUDevice {
			t.Fatalf("expected cpu device: %v", args)
		}
		outputDir = argValue(args, "--output_dir")
		return os.WriteFile(filepath.Join(outputDir, "chunk-001.json"), []byte(sampleOutput), 0o644)
	})

	result, err := svc.Transcribe(context.Background(), engine.Request{AudioPath: source, Language: "fre", Prompt: "Lyon"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "Welcome back. 42" || result.Language != "en" || result.DurationSeconds != 3.1 {
		t.Fatalf("unexpected result %+v", result)
	}
	want := (math.Log(0.9) + math.Log(0.5)) / 2
	if math.Abs(result.Segments[0].AvgLogProb-want) > 1e-12 {
		t.Fatalf("avgLogProb = %v, want %v", result.Segments[0].AvgLogProb, want)
	}
	if result.Segments[1].AvgLogProb != 0 {
		t.Fatalf("unscored segment should have zero avgLogProb, got %v", result.Segments[1].AvgLogProb)
	}
	unaligned := result.Words[2]
	if unaligned.Start != 2.4 || unaligned.End != 3.1 || unaligned.Probability != 1 {
		t.Fatalf("unaligned word should take segment bounds: %+v", unaligned)
	}
	if _, err := os.Stat(outputDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("scratch output dir should be removed, stat err=%v", err)
	}
}

func TestTranscribeMissingOutputIsMalformed(t *testing.T) {
	svc := NewService(Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	_, err := svc.Transcribe(context.Background(), engine.Request{AudioPath: writeSource(t)})
	reason, ok := engine.ReasonOf(err)
	if !ok || reason != engine.ReasonMalformed {
		t.Fatalf("expected malformed reason, got %v", err)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	svc := NewService(Config{TimeoutSeconds: 1})
	svc.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})
	_, err := svc.Transcribe(context.Background(), engine.Request{AudioPath: writeSource(t)})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestBuildArgsCUDAAndPyannote(t *testing.T) {
	svc := NewService(Config{CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "hf_x"})
	args := svc.buildArgs("/a.wav", "/out", "", "")
	if args[0] != "--index-url" || args[1] != CUDAIndexURL {
		t.Fatalf("expected cuda index first: %v", args)
	}
	if argValue(args, "--hf_token") != "hf_x" || argValue(args, "--device") != CUDADevice {
		t.Fatalf("unexpected args %v", args)
	}
	if slices.Contains(args, "--language") || slices.Contains(args, "--compute_type") {
		t.Fatalf("unexpected optional flags %v", args)
	}
	if argValue(args, "--model") != DefaultModel {
		t.Fatalf("expected default model: %v", args)
	}
}
