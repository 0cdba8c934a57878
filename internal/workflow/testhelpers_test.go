package workflow_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scribe/internal/chunking"
	"scribe/internal/config"
	"scribe/internal/engine"
	"scribe/internal/media/ffprobe"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
	"scribe/internal/workflow"
)

// fakeAdapter returns two segments per call covering the chunk it was given.
type fakeAdapter struct {
	mu       sync.Mutex
	calls    []engine.Request
	chunkLen float64
	onCall   func(ctx context.Context, call int) error
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Transcribe(ctx context.Context, req engine.Request) (transcript.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	call := len(f.calls)
	f.mu.Unlock()

	if f.onCall != nil {
		if err := f.onCall(ctx, call); err != nil {
			return transcript.Result{}, err
		}
	}
	half := f.chunkLen / 2
	text1 := fmt.Sprintf("part %d begins.", call)
	text2 := fmt.Sprintf("part %d ends.", call)
	return transcript.Result{
		Text:     text1 + " " + text2,
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: half, Text: text1, AvgLogProb: -0.1, NoSpeechProb: 0.02},
			{Start: half, End: f.chunkLen, Text: text2, AvgLogProb: -0.3, NoSpeechProb: 0.05},
		},
		Words: []transcript.Word{
			{Text: "part", Start: 0.1, End: 0.4, Probability: 0.95},
			{Text: "ends.", Start: half + 0.1, End: half + 0.5, Probability: 0.5},
		},
		DurationSeconds: f.chunkLen,
	}, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func fakeSplitter(durationSeconds string) *chunking.FFmpegSplitter {
	return &chunking.FFmpegSplitter{
		ChunkDuration: 600,
		Limits:        chunking.Limits{MaxSeconds: 600, MaxBytes: 25 << 20},
		Probe: func(context.Context, string, string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{Index: 0, CodecType: "audio"}},
				Format:  ffprobe.Format{Duration: durationSeconds},
			}, nil
		},
		Extract: func(_ context.Context, _, _ string, _ int, _, _ float64, dest string) error {
			return os.WriteFile(dest, []byte("RIFF"), 0o644)
		},
	}
}

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	adapter *fakeAdapter
	manager *workflow.Manager
	source  string
}

func newHarness(t *testing.T, duration string, adapter *fakeAdapter) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	source := filepath.Join(testsupport.BaseDir(cfg), "media", "lecture.mp3")
	testsupport.WriteMediaFile(t, source, 4096)

	manager, err := workflow.NewManager(cfg, workflow.Dependencies{
		Store:    store,
		Splitter: fakeSplitter(duration),
		Adapter:  adapter,
	}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Stop)
	return &harness{cfg: cfg, store: store, adapter: adapter, manager: manager, source: source}
}

func (h *harness) enqueue(t *testing.T) *queue.Job {
	t.Helper()
	return testsupport.MustEnqueue(t, h.store, h.source, queue.PriorityNormal)
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		if job != nil && job.Status.IsTerminal() {
			t.Fatalf("job reached %s (error=%q), want %s", job.Status, job.ErrorMessage, want)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %s", id, want)
	return nil
}

func assertStagingEmpty(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected staging dir to be empty, found %d entries", len(entries))
	}
}
