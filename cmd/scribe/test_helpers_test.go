package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/api"
	"scribe/internal/chunking"
	"scribe/internal/config"
	"scribe/internal/daemon"
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
		Text: "We spent 40 dollars. Thanks.",
		Segments: []transcript.Segment{
			{Start: 0, End: 3, Text: "We spent 40 dollars.", AvgLogProb: -0.1, NoSpeechProb: 0.01},
			{Start: 3, End: 4.25, Text: "Thanks.", AvgLogProb: -0.2, NoSpeechProb: 0.02},
		},
		DurationSeconds: 4.25,
	}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	configPath string
	apiURL     string
	source     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	manager, err := workflow.NewManager(cfg, workflow.Dependencies{
		Store: store,
		Splitter: &chunking.FFmpegSplitter{
			ChunkDuration: 600,
			Limits:        chunking.Limits{MaxSeconds: 600, MaxBytes: 25 << 20},
			Probe: func(context.Context, string, string) (ffprobe.Result, error) {
				return ffprobe.Result{
					Streams: []ffprobe.Stream{{Index: 0, CodecType: "audio"}},
					Format:  ffprobe.Format{Duration: "4.25"},
				}, nil
			},
		},
		Adapter: stubAdapter{},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	jobs := api.NewJobService(api.ServiceOptions{Store: store, Notifier: manager, EngineName: "stub"})
	d, err := daemon.New(daemon.Options{Config: cfg, Store: store, Workflow: manager, Jobs: jobs, Version: "cli-test"})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})

	source := filepath.Join(base, "media", "meeting.m4a")
	testsupport.WriteMediaFile(t, source, 4096)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		configPath: configPath,
		apiURL:     "http://" + d.Address(),
		source:     source,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath, "--api", e.apiURL}, args...))
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
