package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/chunking"
	"scribe/internal/engine"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/staging"
	"scribe/internal/transcript"
)

// errCancelRequested reports that the job's cancel flag was observed.
var errCancelRequested = services.Wrap(services.ErrCancelled, "transcribe", "checkpoint", "cancellation requested", nil)

// finalizeTimeout bounds the terminal store update made after shutdown.
const finalizeTimeout = 5 * time.Second

func (m *Manager) processJob(ctx context.Context, worker string, workerLogger *slog.Logger, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithWorker(jobCtx, worker)
	jobCtx = services.WithStage(jobCtx, "transcribe")
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, workerLogger)

	m.trackActive(worker, job.ID)
	defer m.trackActive(worker, "")

	logger.Info("job claimed",
		logging.String("source", job.SourceRef),
		logging.Int("priority", job.Priority),
		logging.String("language", job.Language),
		logging.String(logging.FieldEventType, "job_claimed"),
	)
	m.publish(Event{JobID: job.ID, Type: EventTypeStatus, Status: queue.StatusProcessing, Message: "Claimed by " + worker})

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	started := time.Now()
	tr, report, err := m.transcribe(jobCtx, logger, job)

	hbCancel()
	hbWG.Wait()

	m.finalize(jobCtx, logger, job, tr, report, err, time.Since(started))
}

// transcribe produces the merged transcript. The staging directory and chunk
// files are released on every return path.
func (m *Manager) transcribe(ctx context.Context, logger *slog.Logger, job *queue.Job) (transcript.Transcript, transcript.ConfidenceReport, error) {
	var (
		empty       transcript.Transcript
		emptyReport transcript.ConfidenceReport
	)

	workDir, err := staging.NewJobDir(m.cfg.Paths.StagingDir, job.ID)
	if err != nil {
		return empty, emptyReport, services.Wrap(services.ErrStorage, "transcribe", "staging", "failed to create job work directory", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove job work directory", logging.String("path", workDir), logging.Error(err))
		}
	}()

	m.progress(ctx, logger, job.ID, 1, "Resolving source", 0, 0)
	asset, err := m.resolver.Resolve(ctx, job.SourceRef, workDir)
	if err != nil {
		return empty, emptyReport, err
	}

	m.progress(ctx, logger, job.ID, 3, "Probing media", 0, 0)
	set, err := m.splitter.Split(ctx, asset, workDir)
	if err != nil {
		return empty, emptyReport, err
	}
	defer func() {
		if err := set.Release(); err != nil {
			logger.Warn("failed to release chunk files", logging.Error(err))
		}
	}()

	count := set.Len()
	logger.Info("transcription plan ready",
		logging.Int("chunk_count", count),
		logging.Bool("split", set.Split),
		logging.Float64("duration_seconds", set.Total),
		logging.String("engine", m.adapter.Name()),
	)

	parts := make([]transcript.Part, 0, count)
	for i, chunk := range set.Chunks {
		if err := m.checkpoint(ctx, job.ID); err != nil {
			return empty, emptyReport, err
		}
		m.progress(ctx, logger, job.ID, chunkPercent(i, count), fmt.Sprintf("Transcribing chunk %d/%d", i+1, count), i+1, count)

		callStart := time.Now()
		result, err := m.adapter.Transcribe(ctx, engine.Request{
			AudioPath: chunk.Path,
			Language:  job.Language,
			Prompt:    job.Prompt(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return empty, emptyReport, ctx.Err()
			}
			return empty, emptyReport, engine.Wrap(err, i, count)
		}
		logger.Debug("chunk transcribed",
			logging.Int("chunk", i+1),
			logging.Int("segments", len(result.Segments)),
			logging.Duration("elapsed", time.Since(callStart)),
		)
		parts = append(parts, transcript.Part{Index: chunk.Index, Duration: planDuration(set, chunk), Result: result})
	}
	if err := m.checkpoint(ctx, job.ID); err != nil {
		return empty, emptyReport, err
	}

	m.progress(ctx, logger, job.ID, 97, "Merging transcript", count, count)
	merged := transcript.Merge(parts)
	if merged.Language == "" {
		merged.Language = job.Language
	}
	report := transcript.Confidence(merged.Segments, merged.Words)
	merged.Segments = transcript.Annotate(merged.Segments, report)
	return merged, report, nil
}

// checkpoint returns errCancelRequested when the job was flagged, or the
// context error on shutdown.
func (m *Manager) checkpoint(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	requested, err := m.store.CancelRequested(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrStorage, "transcribe", "checkpoint", "failed to read cancel flag", err)
	}
	if requested {
		return errCancelRequested
	}
	return nil
}

func (m *Manager) finalize(ctx context.Context, logger *slog.Logger, job *queue.Job, tr transcript.Transcript, report transcript.ConfidenceReport, runErr error, elapsed time.Duration) {
	storeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
		defer cancel()
	}

	var (
		status  queue.Status
		message string
		err     error
	)
	switch {
	case runErr == nil:
		status = queue.StatusCompleted
		err = m.store.Complete(storeCtx, job.ID, tr, report)
	case errors.Is(runErr, services.ErrCancelled):
		status = queue.StatusCancelled
		err = m.store.MarkCancelled(storeCtx, job.ID)
	case ctx.Err() != nil:
		status = queue.StatusFailed
		message = queue.DaemonStopReason
		err = m.store.Fail(storeCtx, job.ID, message)
	default:
		status = queue.StatusFailed
		message = services.FailureMessage(runErr)
		err = m.store.Fail(storeCtx, job.ID, message)
	}

	m.setLastJob(job.ID)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidTransition) {
			logging.WarnWithContext(logger, "job left processing before its worker finished", "job_finalize_skipped",
				logging.String("intended_status", string(status)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "job may have been failed by the heartbeat sweep"),
				logging.String(logging.FieldImpact, "worker result discarded"),
			)
			return
		}
		m.setLastError(err)
		logging.ErrorWithContext(logger, "failed to persist job outcome", "job_finalize_failed",
			logging.String("intended_status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return
	}

	switch status {
	case queue.StatusCompleted:
		logger.Info("job completed",
			logging.Float64("duration_seconds", tr.Duration),
			logging.Int("word_count", tr.WordCount()),
			logging.Float64("confidence", report.OverallScore),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "job_completed"),
		)
		m.publish(Event{JobID: job.ID, Type: EventTypeResult, Status: status, Message: "Completed", Percent: 100})
	case queue.StatusCancelled:
		logger.Info("job cancelled",
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "job_cancelled"),
		)
		m.publish(Event{JobID: job.ID, Type: EventTypeStatus, Status: status, Message: "Cancelled"})
	default:
		details := services.Details(runErr)
		attrs := []logging.Attr{
			logging.String("error_message", message),
			logging.String("error_kind", string(details.Kind)),
			logging.String("error_operation", details.Operation),
			logging.Duration("elapsed", elapsed),
			logging.Error(runErr),
		}
		if details.Hint != "" {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, details.Hint))
		} else if reason, ok := engine.ReasonOf(runErr); ok {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, engineHint(reason)))
		}
		if message == queue.DaemonStopReason {
			logging.WarnWithContext(logger, "job interrupted by shutdown", "job_interrupted", attrs...)
		} else {
			m.setLastError(runErr)
			logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
		}
		m.publish(Event{JobID: job.ID, Type: EventTypeError, Status: status, Message: message})
	}
}

func (m *Manager) progress(ctx context.Context, logger *slog.Logger, jobID string, percent float64, message string, chunk, chunks int) {
	if err := m.store.UpdateProgress(ctx, jobID, percent, message); err != nil && ctx.Err() == nil {
		logger.Warn("failed to record progress", logging.Error(err))
	}
	m.publish(Event{JobID: jobID, Type: EventTypeProgress, Status: queue.StatusProcessing, Message: message, Percent: percent, Chunk: chunk, Chunks: chunks})
}

func (m *Manager) publish(event Event) {
	if m.events != nil {
		m.events.Publish(event)
	}
}

// chunkPercent spreads engine calls over 5-95%.
func chunkPercent(index, count int) float64 {
	if count <= 0 {
		return 5
	}
	return 5 + 90*float64(index)/float64(count)
}

// planDuration is the offset contribution of a chunk. Unsplit sets use the
// probed total so the merged duration matches the asset.
func planDuration(set *chunking.Set, chunk chunking.Chunk) float64 {
	if chunk.Duration > 0 {
		return chunk.Duration
	}
	return set.Total
}

func engineHint(reason engine.Reason) string {
	switch reason {
	case engine.ReasonTimeout:
		return "raise engine.timeout_seconds or lower chunking.chunk_seconds"
	case engine.ReasonQuota:
		return "engine quota exhausted; wait and resubmit"
	case engine.ReasonMalformed:
		return "engine returned an unexpected payload; check engine.base_url"
	default:
		return "check engine configuration and logs"
	}
}
