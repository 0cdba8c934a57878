package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scribe/internal/transcript"
)

// ClaimNext atomically moves the highest-priority, oldest pending job to
// processing and returns it. It returns nil when nothing is pending.
func (s *Store) ClaimNext(ctx context.Context, worker string) (*Job, error) {
	ctx = ensureContext(ctx)
	timestamp := nowString()
	var id string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, started_at = ?, updated_at = ?, last_heartbeat = ?,
                 worker = ?, progress_message = ?
             WHERE seq = (
                 SELECT seq FROM jobs WHERE status = ?
                 ORDER BY priority DESC, seq ASC LIMIT 1
             ) AND status = ?
             RETURNING id`,
			StatusProcessing,
			timestamp,
			timestamp,
			timestamp,
			nullableString(worker),
			"Claimed",
			StatusPending,
			StatusPending,
		).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Cancel cancels a pending job outright or flags a processing job for its
// worker. Cancelling a terminal job is reported as CancelNoop.
func (s *Store) Cancel(ctx context.Context, id string) (CancelOutcome, error) {
	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, updated_at = ?, progress_message = ?
         WHERE id = ? AND status = ?`,
		StatusCancelled, timestamp, timestamp, "Cancelled", id, StatusPending,
	)
	if err != nil {
		return "", fmt.Errorf("cancel pending job: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return CancelRemoved, nil
	}

	res, err = s.execWithRetry(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ?, progress_message = ?
         WHERE id = ? AND status = ?`,
		timestamp, "Cancellation requested", id, StatusProcessing,
	)
	if err != nil {
		return "", fmt.Errorf("flag processing job: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return CancelFlagged, nil
	}

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job == nil {
		return CancelNotFound, nil
	}
	return CancelNoop, nil
}

// CancelRequested reports whether cancellation was requested for a processing job.
func (s *Store) CancelRequested(ctx context.Context, id string) (bool, error) {
	var flag int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT cancel_requested FROM jobs WHERE id = ?`, id,
	).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Complete stores the transcript and moves a processing job to completed.
// A second call returns ErrInvalidTransition.
func (s *Store) Complete(ctx context.Context, id string, tr transcript.Transcript, report transcript.ConfidenceReport) error {
	transcriptJSON, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	confidenceJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode confidence report: %w", err)
	}

	ctx = ensureContext(ctx)
	timestamp := nowString()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs
             SET status = ?, completed_at = ?, updated_at = ?, transcript_ref = ?,
                 duration_seconds = ?, word_count = ?, confidence = ?,
                 progress_percent = 100, progress_message = ?, error_message = NULL
             WHERE id = ? AND status = ?`,
			StatusCompleted, timestamp, timestamp, id,
			tr.Duration, tr.WordCount(), report.OverallScore,
			"Completed", id, StatusProcessing,
		)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return err
		} else if affected == 0 {
			return ErrInvalidTransition
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transcripts (job_id, transcript_json, confidence_json, created_at)
             VALUES (?, ?, ?, ?)`,
			id, string(transcriptJSON), string(confidenceJSON), timestamp,
		)
		return err
	})
	if errors.Is(err, ErrInvalidTransition) {
		return fmt.Errorf("complete job %s: %w", id, ErrInvalidTransition)
	}
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail moves a processing job to failed with a human-readable message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, StatusFailed, message, "Failed")
}

// MarkCancelled moves a processing job to cancelled after its worker observed the flag.
func (s *Store) MarkCancelled(ctx context.Context, id string) error {
	return s.finish(ctx, id, StatusCancelled, "", "Cancelled")
}

func (s *Store) finish(ctx context.Context, id string, status Status, message, progress string) error {
	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?, progress_message = ?
         WHERE id = ? AND status = ?`,
		status, nullableString(message), timestamp, timestamp, progress, id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark job %s: %w", status, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("mark job %s %s: %w", id, status, ErrInvalidTransition)
	}
	return nil
}

// UpdateProgress records percent and message for a processing job.
func (s *Store) UpdateProgress(ctx context.Context, id string, percent float64, message string) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		percent, nullableString(message), nowString(), id, StatusProcessing,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	timestamp := nowString()
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		timestamp, timestamp, id, StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// FailStaleProcessing fails processing jobs whose heartbeat is older than cutoff.
// Failed jobs are not retried; callers resubmit.
func (s *Store) FailStaleProcessing(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?, progress_message = ?
         WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusFailed, message, timestamp, timestamp, "Failed", StatusProcessing, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// FailAllProcessing fails every processing job, used when no worker can still own them.
func (s *Store) FailAllProcessing(ctx context.Context, message string) (int64, error) {
	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?, progress_message = ?
         WHERE status = ?`,
		StatusFailed, message, timestamp, timestamp, "Failed", StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing jobs: %w", err)
	}
	return res.RowsAffected()
}
