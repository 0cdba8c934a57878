package config

const (
	defaultConfigPath                = "~/.config/scribe/config.toml"
	defaultStagingDir                = "~/.local/share/scribe/staging"
	defaultLogDir                    = "~/.local/share/scribe/logs"
	defaultAPIBind                   = "127.0.0.1:7490"
	defaultEngineName                = EngineWhisperAPI
	defaultEngineBaseURL             = "https://api.openai.com/v1"
	defaultEngineModel               = "whisper-1"
	defaultEngineTimeoutSeconds      = 900
	defaultEngineRetryAttempts       = 2
	defaultEngineRetryBaseDelayMS    = 2000
	maxEngineRetryAttempts           = 10
	defaultWhisperXModel             = "large-v3"
	defaultChunkSeconds              = 600
	defaultMaxSingleCallSeconds      = 600
	defaultMaxSingleCallMB           = 25
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultWorkers                   = 1
	defaultQueuePollInterval         = 2
	defaultErrorRetryInterval        = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultCacheBackend              = CacheNone
	defaultCacheTTLSeconds           = 3600
	defaultCacheKeyPrefix            = "scribe:"
	defaultRedisAddr                 = "127.0.0.1:6379"
	defaultQAMaxSamples              = 5
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Engine names accepted by engine.name.
const (
	EngineWhisperAPI = "whisper_api"
	EngineWhisperX   = "whisperx"
)

// Cache backends accepted by cache.backend.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Engine: Engine{
			Name:             defaultEngineName,
			BaseURL:          defaultEngineBaseURL,
			Model:            defaultEngineModel,
			TimeoutSeconds:   defaultEngineTimeoutSeconds,
			RetryAttempts:    defaultEngineRetryAttempts,
			RetryBaseDelayMS: defaultEngineRetryBaseDelayMS,
			WhisperXModel:    defaultWhisperXModel,
		},
		Chunking: Chunking{
			ChunkSeconds:         defaultChunkSeconds,
			MaxSingleCallSeconds: defaultMaxSingleCallSeconds,
			MaxSingleCallMB:      defaultMaxSingleCallMB,
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Cache: Cache{
			Backend:    defaultCacheBackend,
			RedisAddr:  defaultRedisAddr,
			TTLSeconds: defaultCacheTTLSeconds,
			KeyPrefix:  defaultCacheKeyPrefix,
		},
		QA: QA{
			MaxSamples: defaultQAMaxSamples,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
