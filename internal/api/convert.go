package api

import (
	"maps"
	"time"

	"scribe/internal/queue"
	"scribe/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:              job.ID,
		SourceRef:       job.SourceRef,
		Status:          string(job.Status),
		Priority:        job.Priority,
		Language:        job.Language,
		Engine:          job.EngineName,
		Options:         maps.Clone(job.Options),
		CancelRequested: job.CancelRequested,
		Progress:        Progress{Percent: job.ProgressPercent, Message: job.ProgressMessage},
		ErrorMessage:    job.ErrorMessage,
		DurationSeconds: job.DurationSeconds,
		WordCount:       job.WordCount,
		Confidence:      job.Confidence,
		Worker:          job.Worker,
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
		StartedAt:       formatTimePtr(job.StartedAt),
		CompletedAt:     formatTimePtr(job.CompletedAt),
	}
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// StatusFromJob builds the getStatus payload.
func StatusFromJob(job *queue.Job) JobStatus {
	status := JobStatus{
		ID:          job.ID,
		Status:      string(job.Status),
		Progress:    Progress{Percent: job.ProgressPercent, Message: job.ProgressMessage},
		CreatedAt:   formatTime(job.CreatedAt),
		StartedAt:   formatTimePtr(job.StartedAt),
		CompletedAt: formatTimePtr(job.CompletedAt),
	}
	switch job.Status {
	case queue.StatusCompleted:
		confidence := job.Confidence
		duration := job.DurationSeconds
		words := job.WordCount
		status.Confidence = &confidence
		status.DurationSeconds = &duration
		status.WordCount = &words
	case queue.StatusFailed:
		status.Error = job.ErrorMessage
	}
	return status
}

// FromStatusSummary converts workflow diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:    summary.Running,
		Workers:    summary.Workers,
		Engine:     summary.Engine,
		QueueStats: MergeQueueStats(summary.QueueStats),
		ActiveJobs: summary.ActiveJobs,
		LastError:  summary.LastError,
		LastJobID:  summary.LastJobID,
	}
}

// MergeQueueStats keys counts by status string, including zero counts.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
