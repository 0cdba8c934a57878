package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const jobColumns = "id, source_ref, status, priority, language, engine_name, options_json, cancel_requested, error_message, transcript_ref, progress_percent, progress_message, worker, duration_seconds, word_count, confidence, created_at, updated_at, started_at, completed_at, last_heartbeat"

// timestampLayout is fixed width so stored timestamps compare correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		statusStr       string
		language        sql.NullString
		engineName      sql.NullString
		optionsJSON     sql.NullString
		cancelRequested int64
		errorMessage    sql.NullString
		transcriptRef   sql.NullString
		progressMessage sql.NullString
		worker          sql.NullString
		createdRaw      string
		updatedRaw      string
		startedRaw      sql.NullString
		completedRaw    sql.NullString
		heartbeatRaw    sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.SourceRef,
		&statusStr,
		&job.Priority,
		&language,
		&engineName,
		&optionsJSON,
		&cancelRequested,
		&errorMessage,
		&transcriptRef,
		&job.ProgressPercent,
		&progressMessage,
		&worker,
		&job.DurationSeconds,
		&job.WordCount,
		&job.Confidence,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.Language = language.String
	job.EngineName = engineName.String
	job.CancelRequested = cancelRequested != 0
	job.ErrorMessage = errorMessage.String
	job.TranscriptRef = transcriptRef.String
	job.ProgressMessage = progressMessage.String
	job.Worker = worker.String
	if optionsJSON.Valid && optionsJSON.String != "" {
		if err := json.Unmarshal([]byte(optionsJSON.String), &job.Options); err != nil {
			return nil, err
		}
	}
	if job.Options == nil {
		job.Options = map[string]string{}
	}
	if ts, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = ts
	}
	if ts, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = ts
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.CompletedAt = parseNullableTime(completedRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func nowString() string {
	return formatTime(time.Now())
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	ts, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &ts
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timestampLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
