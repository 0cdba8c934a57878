package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeChunking()
	c.normalizeWorkflow()
	c.normalizeCache()
	if c.QA.MaxSamples <= 0 {
		c.QA.MaxSamples = defaultQAMaxSamples
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SCRIBE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.Name = strings.ToLower(strings.TrimSpace(c.Engine.Name))
	if c.Engine.Name == "" {
		c.Engine.Name = defaultEngineName
	}
	c.Engine.BaseURL = strings.TrimRight(strings.TrimSpace(c.Engine.BaseURL), "/")
	if c.Engine.BaseURL == "" {
		c.Engine.BaseURL = defaultEngineBaseURL
	}
	c.Engine.Model = strings.TrimSpace(c.Engine.Model)
	if c.Engine.Model == "" {
		c.Engine.Model = defaultEngineModel
	}
	c.Engine.APIKey = strings.TrimSpace(c.Engine.APIKey)
	if c.Engine.APIKey == "" {
		if value, ok := os.LookupEnv("SCRIBE_ENGINE_API_KEY"); ok {
			c.Engine.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Engine.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Engine.TimeoutSeconds <= 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeoutSeconds
	}
	c.Engine.WhisperXModel = strings.TrimSpace(c.Engine.WhisperXModel)
	if c.Engine.WhisperXModel == "" {
		c.Engine.WhisperXModel = defaultWhisperXModel
	}
}

func (c *Config) normalizeChunking() {
	if c.Chunking.ChunkSeconds <= 0 {
		c.Chunking.ChunkSeconds = defaultChunkSeconds
	}
	if c.Chunking.MaxSingleCallSeconds <= 0 {
		c.Chunking.MaxSingleCallSeconds = defaultMaxSingleCallSeconds
	}
	if c.Chunking.MaxSingleCallMB <= 0 {
		c.Chunking.MaxSingleCallMB = defaultMaxSingleCallMB
	}
	c.Chunking.FFmpegBinary = strings.TrimSpace(c.Chunking.FFmpegBinary)
	if c.Chunking.FFmpegBinary == "" {
		c.Chunking.FFmpegBinary = defaultFFmpegBinary
	}
	c.Chunking.FFprobeBinary = strings.TrimSpace(c.Chunking.FFprobeBinary)
	if c.Chunking.FFprobeBinary == "" {
		c.Chunking.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = defaultRedisAddr
	}
	if c.Cache.RedisPassword == "" {
		if value, ok := os.LookupEnv("SCRIBE_REDIS_PASSWORD"); ok {
			c.Cache.RedisPassword = value
		}
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = defaultCacheKeyPrefix
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
