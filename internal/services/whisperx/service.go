package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/engine"
	langpkg "scribe/internal/language"
	"scribe/internal/transcript"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service is the whisperx engine adapter.
type Service struct {
	cfg           Config
	commandRunner CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Name implements engine.Adapter.
func (s *Service) Name() string { return Name }

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs WhisperX on one audio handle and converts its JSON output.
func (s *Service) Transcribe(ctx context.Context, req engine.Request) (transcript.Result, error) {
	var empty transcript.Result
	source := strings.TrimSpace(req.AudioPath)
	if source == "" {
		return empty, engine.NewError(Name, engine.ReasonRejected, "audio path required", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return empty, engine.NewError(Name, engine.ReasonRejected, "stat audio", err)
	}
	outputDir, err := os.MkdirTemp(filepath.Dir(source), "whisperx-")
	if err != nil {
		return empty, engine.NewError(Name, engine.ReasonExecution, "create output dir", err)
	}
	defer os.RemoveAll(outputDir)

	runCtx := ctx
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	args := s.buildArgs(source, outputDir, req.Language, req.Prompt)
	if err := s.run(runCtx, UVXCommand, args...); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return empty, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return empty, engine.NewError(Name, engine.ReasonTimeout, fmt.Sprintf("no output within %ds", s.cfg.TimeoutSeconds), err)
		}
		return empty, engine.NewError(Name, engine.ReasonExecution, "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	payload, err := loadPayload(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return empty, engine.NewError(Name, engine.ReasonMalformed, "", err)
	}
	return payload.result(), nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, language, prompt string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang, err := langpkg.Normalize(language); err == nil && lang != "" {
		args = append(args, "--language", lang)
	}
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		args = append(args, "--initial_prompt", prompt)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Word represents a single aligned word from WhisperX output.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score *float64 `json:"score"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func loadPayload(jsonPath string) (payload, error) {
	var p payload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return p, fmt.Errorf("read whisperx json: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse whisperx json: %w", err)
	}
	if p.Segments == nil {
		return p, errors.New("whisperx json has no segments")
	}
	return p, nil
}

// result converts WhisperX output. Unaligned words (no timing) take the
// bounds of their segment and have no score, so they count as fully
// confident; segments without any scored word get avgLogProb 0.
func (p payload) result() transcript.Result {
	result := transcript.Result{
		Language: p.Language,
		Segments: make([]transcript.Segment, 0, len(p.Segments)),
	}
	texts := make([]string, 0, len(p.Segments))
	for i, seg := range p.Segments {
		text := strings.TrimSpace(seg.Text)
		segment := transcript.Segment{
			ID:         i,
			Start:      seg.Start,
			End:        seg.End,
			Text:       text,
			AvgLogProb: avgLogScore(seg.Words),
		}
		for _, w := range seg.Words {
			word := transcript.Word{
				Text:        strings.TrimSpace(w.Word),
				Start:       valueOr(w.Start, seg.Start),
				End:         valueOr(w.End, seg.End),
				Probability: valueOr(w.Score, 1),
			}
			segment.Words = append(segment.Words, word)
			result.Words = append(result.Words, word)
		}
		result.Segments = append(result.Segments, segment)
		if text != "" {
			texts = append(texts, text)
		}
		if seg.End > result.DurationSeconds {
			result.DurationSeconds = seg.End
		}
	}
	result.Text = strings.Join(texts, " ")
	return result
}

func avgLogScore(words []Word) float64 {
	var sum float64
	var count int
	for _, w := range words {
		if w.Score == nil || *w.Score <= 0 {
			continue
		}
		sum += math.Log(math.Min(*w.Score, 1))
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
