package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Enqueue inserts a new pending job and returns it.
func (s *Store) Enqueue(ctx context.Context, req NewJob) (*Job, error) {
	sourceRef := strings.TrimSpace(req.SourceRef)
	if sourceRef == "" {
		return nil, errors.New("enqueue: source reference is required")
	}
	options := req.Options
	if options == nil {
		options = map[string]string{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	id := uuid.NewString()
	timestamp := nowString()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, source_ref, status, priority, language, engine_name, options_json,
            created_at, updated_at, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		id,
		sourceRef,
		StatusPending,
		req.Priority,
		nullableString(req.Language),
		nullableString(req.EngineName),
		string(optionsJSON),
		timestamp,
		timestamp,
		"Queued",
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns nil without error.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs in enqueue order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Transcript loads the stored transcript of a completed job. A job without a
// transcript returns nil without error.
func (s *Store) Transcript(ctx context.Context, id string) (*StoredTranscript, error) {
	var transcriptJSON, confidenceJSON, createdRaw string
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT transcript_json, confidence_json, created_at FROM transcripts WHERE job_id = ?`,
		id,
	).Scan(&transcriptJSON, &confidenceJSON, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}

	stored := &StoredTranscript{JobID: id}
	if err := json.Unmarshal([]byte(transcriptJSON), &stored.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(confidenceJSON), &stored.Confidence); err != nil {
		return nil, fmt.Errorf("decode confidence report: %w", err)
	}
	if ts, err := parseTimeString(createdRaw); err == nil {
		stored.CreatedAt = ts
	}
	return stored, nil
}

// Delete removes a terminal job and its transcript. It reports false when the
// job does not exist and ErrInvalidTransition when the job is still active.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM jobs WHERE id = ? AND status IN (?, ?, ?)`,
			id, StatusCompleted, StatusFailed, StatusCancelled,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		_, err = tx.ExecContext(ctx, `DELETE FROM transcripts WHERE job_id = ?`, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	if deleted {
		return true, nil
	}

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return false, fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, job.Status)
}
