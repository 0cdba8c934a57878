package main

import (
	"fmt"
	"log/slog"

	"scribe/internal/api"
	"scribe/internal/cache"
	"scribe/internal/chunking"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/engine"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services/whisperapi"
	"scribe/internal/services/whisperx"
	"scribe/internal/workflow"
)

type components struct {
	store   *queue.Store
	cache   cache.Cache
	manager *workflow.Manager
	jobs    *api.JobService
}

// close releases the cache; the store is closed by the daemon.
func (c *components) close() {
	if c.cache != nil {
		_ = c.cache.Close()
	}
}

func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	adapter, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	exportCache, err := cache.New(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	manager, err := workflow.NewManager(cfg, workflow.Dependencies{
		Store:    store,
		Splitter: buildSplitter(cfg, logger),
		Adapter:  adapter,
	}, logger)
	if err != nil {
		_ = exportCache.Close()
		_ = store.Close()
		return nil, err
	}

	jobs := api.NewJobService(api.ServiceOptions{
		Store:        store,
		Cache:        exportCache,
		Notifier:     manager,
		EngineName:   adapter.Name(),
		QAMaxSamples: cfg.QA.MaxSamples,
		Logger:       logger,
	})

	logger.Info("daemon components ready",
		logging.String("engine", adapter.Name()),
		logging.String("cache", cfg.Cache.Backend),
		logging.String("queue_db", store.Path()),
	)
	return &components{store: store, cache: exportCache, manager: manager, jobs: jobs}, nil
}

func whisperAPIConfig(cfg *config.Config) whisperapi.Config {
	return whisperapi.Config{
		BaseURL:        cfg.Engine.BaseURL,
		APIKey:         cfg.Engine.APIKey,
		Model:          cfg.Engine.Model,
		TimeoutSeconds: cfg.Engine.TimeoutSeconds,
		Retry: whisperapi.RetryPolicy{
			Attempts:  cfg.Engine.RetryAttempts,
			BaseDelay: cfg.EngineRetryBaseDelay(),
		},
	}
}

// buildEngine constructs the adapter named by engine.name.
func buildEngine(cfg *config.Config) (engine.Adapter, error) {
	switch cfg.Engine.Name {
	case config.EngineWhisperAPI:
		return whisperapi.NewClient(whisperAPIConfig(cfg)), nil
	case config.EngineWhisperX:
		return whisperx.NewService(whisperx.Config{
			Model:          cfg.Engine.WhisperXModel,
			CUDAEnabled:    cfg.Engine.WhisperXCUDA,
			TimeoutSeconds: cfg.Engine.TimeoutSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", cfg.Engine.Name)
	}
}

func buildSplitter(cfg *config.Config, logger *slog.Logger) *chunking.FFmpegSplitter {
	return &chunking.FFmpegSplitter{
		FFmpegBinary:  deps.ResolveBinary(cfg.Chunking.FFmpegBinary, "ffmpeg"),
		FFprobeBinary: deps.ResolveBinary(cfg.Chunking.FFprobeBinary, "ffprobe"),
		ChunkDuration: cfg.ChunkDuration().Seconds(),
		Limits: chunking.Limits{
			MaxSeconds: float64(cfg.Chunking.MaxSingleCallSeconds),
			MaxBytes:   cfg.MaxSingleCallBytes(),
		},
		Logger: logger,
	}
}
