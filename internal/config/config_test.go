package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("SCRIBE_ENGINE_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "scribe", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Engine.APIKey != "test-key" {
		t.Fatalf("expected engine key from env, got %q", cfg.Engine.APIKey)
	}
	if cfg.Engine.Name != config.EngineWhisperAPI {
		t.Fatalf("unexpected engine: %q", cfg.Engine.Name)
	}
	if cfg.Chunking.ChunkSeconds != 600 {
		t.Fatalf("unexpected chunk seconds: %d", cfg.Chunking.ChunkSeconds)
	}
	if cfg.MaxSingleCallBytes() != 25*1024*1024 {
		t.Fatalf("unexpected single call limit: %d", cfg.MaxSingleCallBytes())
	}
	if cfg.Cache.Backend != config.CacheNone {
		t.Fatalf("expected cache disabled by default, got %q", cfg.Cache.Backend)
	}
	if cfg.QA.MaxSamples != 5 {
		t.Fatalf("unexpected qa samples: %d", cfg.QA.MaxSamples)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
}

func TestLoadFallsBackToOpenAIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	os.Unsetenv("SCRIBE_ENGINE_API_KEY")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Engine.APIKey != "sk-openai" {
		t.Fatalf("expected fallback key, got %q", cfg.Engine.APIKey)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfgPath := filepath.Join(t.TempDir(), "scribe.toml")
	cfg := config.Default()
	cfg.Paths.StagingDir = "~/custom/staging"
	cfg.Engine.Name = "WhisperX"
	cfg.Cache.Backend = "memory"
	cfg.Logging.Format = "JSON"
	cfg.Workflow.Workers = 3
	cfg.Engine.RetryAttempts = 4
	cfg.Engine.RetryBaseDelayMS = 250

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", cfgPath, resolved, exists)
	}
	if loaded.Paths.StagingDir != filepath.Join(tempHome, "custom", "staging") {
		t.Fatalf("unexpected staging dir: %q", loaded.Paths.StagingDir)
	}
	if loaded.Engine.Name != config.EngineWhisperX {
		t.Fatalf("expected engine name normalized, got %q", loaded.Engine.Name)
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", loaded.Logging.Format)
	}
	if loaded.Workflow.Workers != 3 {
		t.Fatalf("unexpected workers: %d", loaded.Workflow.Workers)
	}
	if loaded.Engine.RetryAttempts != 4 || loaded.EngineRetryBaseDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected retry policy: %d attempts, %s", loaded.Engine.RetryAttempts, loaded.EngineRetryBaseDelay())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown engine", func(c *config.Config) { c.Engine.Name = "vosk" }, "engine.name"},
		{"non http base", func(c *config.Config) { c.Engine.BaseURL = "ftp://x" }, "engine.base_url"},
		{"chunk larger than limit", func(c *config.Config) { c.Chunking.ChunkSeconds = 1200 }, "chunk_seconds"},
		{"zero workers", func(c *config.Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"heartbeat order", func(c *config.Config) { c.Workflow.HeartbeatTimeout = 5 }, "heartbeat_timeout"},
		{"unknown cache", func(c *config.Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"zero retry attempts", func(c *config.Config) { c.Engine.RetryAttempts = 0 }, "engine.retry_attempts"},
		{"too many retry attempts", func(c *config.Config) { c.Engine.RetryAttempts = 11 }, "engine.retry_attempts"},
		{"negative retry delay", func(c *config.Config) { c.Engine.RetryBaseDelayMS = -1 }, "engine.retry_base_delay_ms"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}

func TestAPIBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = ":9000"
	if got := cfg.APIBaseURL(); got != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected base url: %q", got)
	}
	cfg.Paths.APIBind = "https://scribe.local/"
	if got := cfg.APIBaseURL(); got != "https://scribe.local" {
		t.Fatalf("unexpected base url: %q", got)
	}
}
