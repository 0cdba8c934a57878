package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.Name {
	case EngineWhisperAPI:
		if !strings.HasPrefix(c.Engine.BaseURL, "http://") && !strings.HasPrefix(c.Engine.BaseURL, "https://") {
			return fmt.Errorf("engine.base_url must be an http(s) URL, got %q", c.Engine.BaseURL)
		}
	case EngineWhisperX:
	default:
		return fmt.Errorf("engine.name must be %q or %q, got %q", EngineWhisperAPI, EngineWhisperX, c.Engine.Name)
	}
	if c.Engine.RetryAttempts < 1 || c.Engine.RetryAttempts > maxEngineRetryAttempts {
		return fmt.Errorf("engine.retry_attempts must be between 1 and %d, got %d", maxEngineRetryAttempts, c.Engine.RetryAttempts)
	}
	if c.Engine.RetryBaseDelayMS < 0 {
		return fmt.Errorf("engine.retry_base_delay_ms must be zero or positive, got %d", c.Engine.RetryBaseDelayMS)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if err := ensurePositiveMap(map[string]int{
		"chunking.chunk_seconds":           c.Chunking.ChunkSeconds,
		"chunking.max_single_call_seconds": c.Chunking.MaxSingleCallSeconds,
		"chunking.max_single_call_mb":      c.Chunking.MaxSingleCallMB,
	}); err != nil {
		return err
	}
	if c.Chunking.ChunkSeconds > c.Chunking.MaxSingleCallSeconds {
		return errors.New("chunking.chunk_seconds must not exceed chunking.max_single_call_seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":              c.Workflow.Workers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr must be set when cache.backend is redis")
		}
		if c.Cache.RedisDB < 0 {
			return errors.New("cache.redis_db must be >= 0")
		}
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis; got %q", c.Cache.Backend)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
