package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scribe/internal/api"
	"scribe/internal/chunking"
	"scribe/internal/config"
	"scribe/internal/engine"
	"scribe/internal/media/ffprobe"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
	"scribe/internal/workflow"
)

type stubAdapter struct{}

func (stubAdapter) Name() string { return "stub" }

func (stubAdapter) Transcribe(context.Context, engine.Request) (transcript.Result, error) {
	return transcript.Result{
		Text:     "Hello there. Thanks.",
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 2.5, Text: "Hello there.", AvgLogProb: -0.1, NoSpeechProb: 0.01},
			{Start: 2.5, End: 4, Text: "Thanks.", AvgLogProb: -0.2, NoSpeechProb: 0.02},
		},
		DurationSeconds: 4,
	}, nil
}

func stubSplitter() *chunking.FFmpegSplitter {
	return &chunking.FFmpegSplitter{
		ChunkDuration: 600,
		Limits:        chunking.Limits{MaxSeconds: 600, MaxBytes: 25 << 20},
		Probe: func(context.Context, string, string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{Index: 0, CodecType: "audio"}},
				Format:  ffprobe.Format{Duration: "4.0"},
			}, nil
		},
		Extract: func(_ context.Context, _, _ string, _ int, _, _ float64, dest string) error {
			return os.WriteFile(dest, []byte("RIFF"), 0o644)
		},
	}
}

type fixture struct {
	cfg    *config.Config
	store  *queue.Store
	daemon *Daemon
	source string
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	require.NoError(t, cfg.EnsureDirectories())
	store := testsupport.MustOpenStore(t, cfg)

	manager, err := workflow.NewManager(cfg, workflow.Dependencies{
		Store:    store,
		Splitter: stubSplitter(),
		Adapter:  stubAdapter{},
	}, nil)
	require.NoError(t, err)

	jobs := api.NewJobService(api.ServiceOptions{
		Store:      store,
		Notifier:   manager,
		EngineName: manager.EngineName(),
	})
	d, err := New(Options{Config: cfg, Store: store, Workflow: manager, Jobs: jobs, Version: "test"})
	require.NoError(t, err)
	t.Cleanup(d.Stop)

	source := filepath.Join(testsupport.BaseDir(cfg), "media", "talk.wav")
	testsupport.WriteMediaFile(t, source, 2048)
	return &fixture{cfg: cfg, store: store, daemon: d, source: source}
}

func (f *fixture) handler() http.Handler {
	return f.daemon.api.server.Handler
}

func (f *fixture) enqueue(t *testing.T) string {
	t.Helper()
	return testsupport.MustEnqueue(t, f.store, f.source, queue.PriorityNormal).ID
}

// completeJob stores a finished transcript for a freshly enqueued job.
func (f *fixture) completeJob(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	job := testsupport.MustEnqueue(t, f.store, f.source, queue.PriorityNormal)
	claimed, err := f.store.ClaimNext(ctx, "test-worker")
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	result, _ := stubAdapter{}.Transcribe(ctx, engine.Request{})
	tr := transcript.Merge([]transcript.Part{{Index: 0, Duration: 4, Result: result}})
	report := transcript.Confidence(tr.Segments, tr.Words)
	tr.Segments = transcript.Annotate(tr.Segments, report)
	require.NoError(t, f.store.Complete(ctx, job.ID, tr, report))
	return job.ID
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, out any) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}
