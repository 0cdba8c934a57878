package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
)

// HeartbeatMonitor refreshes heartbeats of running jobs and fails jobs whose
// worker stopped reporting.
type HeartbeatMonitor struct {
	store             queue.Repository
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store queue.Repository, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// FailStaleJobs fails processing jobs whose heartbeat is older than the
// timeout. Jobs are not requeued; resubmission is up to the caller.
func (h *HeartbeatMonitor) FailStaleJobs(ctx context.Context, logger *slog.Logger) (int64, error) {
	if h.heartbeatTimeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	failed, err := h.store.FailStaleProcessing(ctx, cutoff, queue.HeartbeatExpiredReason)
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		logging.WarnWithContext(logger, "failed jobs with expired heartbeat", "heartbeat_expired",
			logging.Int64("count", failed),
			logging.String(logging.FieldErrorHint, "resubmit the affected jobs"),
			logging.String(logging.FieldImpact, "jobs were marked failed"),
		)
	}
	return failed, nil
}

// StartLoop runs a heartbeat updater for a specific job until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID string) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "workflow-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat loop stopped")
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
