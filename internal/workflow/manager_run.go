package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/staging"
)

// Start fails jobs orphaned by a previous daemon and launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	base := logging.NewComponentLogger(m.logger, "workflow-manager")
	orphaned, err := m.store.FailAllProcessing(ctx, queue.DaemonStopReason)
	if err != nil {
		return fmt.Errorf("fail orphaned jobs: %w", err)
	}
	if orphaned > 0 {
		logging.WarnWithContext(base, "failed jobs left processing by a previous daemon", "orphaned_jobs_failed",
			logging.Int64("count", orphaned),
			logging.String(logging.FieldErrorHint, "resubmit the affected jobs"),
			logging.String(logging.FieldImpact, "jobs were marked failed"),
		)
	}
	if cleaned := staging.CleanJobDirs(m.cfg.Paths.StagingDir, base); len(cleaned.Removed) > 0 {
		base.Info("reclaimed leftover job directories",
			logging.Int("count", len(cleaned.Removed)),
			logging.String(logging.FieldEventType, "staging_cleanup_summary"),
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	for i := 1; i <= m.workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		go m.runWorker(runCtx, name)
	}
	base.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String("engine", m.adapter.Name()),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	return nil
}

// Stop terminates background processing and waits for completion. Jobs in
// flight are failed with queue.DaemonStopReason.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, name string) {
	defer m.wg.Done()
	logger := logging.NewComponentLogger(m.logger, "workflow-"+name).With(logging.String(logging.FieldWorker, name))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := m.heartbeat.FailStaleJobs(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("stale job sweep failed; stuck jobs may remain processing",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_sweep_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
		}

		job, err := m.store.ClaimNext(ctx, name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		m.processJob(ctx, name, logger, job)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.retryDelay):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-time.After(m.pollInterval):
	}
}
