package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/assets"
	"scribe/internal/chunking"
	"scribe/internal/config"
	"scribe/internal/engine"
	"scribe/internal/queue"
)

// AssetResolver makes a source reference readable as a local file.
type AssetResolver interface {
	Resolve(ctx context.Context, ref, workDir string) (*assets.Asset, error)
}

// Dependencies are the collaborators a Manager drives. Store, Splitter and
// Adapter are required.
type Dependencies struct {
	Store    queue.Repository
	Resolver AssetResolver
	Splitter chunking.Splitter
	Adapter  engine.Adapter
	Events   *EventBus
}

// Manager coordinates the transcription workers.
type Manager struct {
	cfg          *config.Config
	store        queue.Repository
	resolver     AssetResolver
	splitter     chunking.Splitter
	adapter      engine.Adapter
	events       *EventBus
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration
	workers      int

	heartbeat *HeartbeatMonitor
	wake      chan struct{}

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastJobID string
	active    map[string]string
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("workflow: config required")
	}
	if deps.Store == nil || deps.Splitter == nil || deps.Adapter == nil {
		return nil, errors.New("workflow: store, splitter and engine adapter are required")
	}
	if deps.Resolver == nil {
		deps.Resolver = assets.NewResolver(cfg.EngineTimeout())
	}
	if deps.Events == nil {
		deps.Events = NewEventBus(0)
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        deps.Store,
		resolver:     deps.Resolver,
		splitter:     deps.Splitter,
		adapter:      deps.Adapter,
		events:       deps.Events,
		logger:       logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		workers:      workers,
		heartbeat: NewHeartbeatMonitor(
			deps.Store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		wake:   make(chan struct{}, 1),
		active: make(map[string]string),
	}, nil
}

// Events returns the bus job events are published to.
func (m *Manager) Events() *EventBus {
	return m.events
}

// EngineName returns the name of the configured engine adapter.
func (m *Manager) EngineName() string {
	return m.adapter.Name()
}

// Wake nudges an idle worker to poll immediately, e.g. after an enqueue.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
