package preflight

import (
	"context"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinStagingFreeBytes is the free space below which the staging check fails.
// A 40-minute asset split into 16 kHz mono WAV chunks needs about 80 MB.
const MinStagingFreeBytes = 512 << 20

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, MinStagingFreeBytes),
	}

	for _, dep := range CheckSystemDeps(cfg) {
		result := Result{Name: dep.Name, Passed: dep.Available || dep.Optional, Detail: dep.Command}
		if !dep.Available {
			result.Detail = dep.Detail
		}
		results = append(results, result)
	}

	switch cfg.Engine.Name {
	case config.EngineWhisperAPI:
		results = append(results, CheckEngineAPI(ctx, cfg.Engine.BaseURL, cfg.Engine.APIKey))
	}

	if cfg.Cache.Backend == config.CacheRedis {
		results = append(results, CheckRedis(ctx, cfg))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
