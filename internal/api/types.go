package api

import "scribe/internal/qa"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CreateJobRequest is the createJob input.
type CreateJobRequest struct {
	SourceRef string            `json:"sourceRef"`
	Language  string            `json:"language,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// CreateJobResponse acknowledges an enqueued job.
type CreateJobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
}

// Progress captures worker progress for a job.
type Progress struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Job describes a job in a transport-friendly format.
type Job struct {
	ID              string            `json:"id"`
	SourceRef       string            `json:"sourceRef"`
	Status          string            `json:"status"`
	Priority        int               `json:"priority"`
	Language        string            `json:"language,omitempty"`
	Engine          string            `json:"engine"`
	Options         map[string]string `json:"options,omitempty"`
	CancelRequested bool              `json:"cancelRequested,omitempty"`
	Progress        Progress          `json:"progress"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
	DurationSeconds float64           `json:"durationSeconds,omitempty"`
	WordCount       int               `json:"wordCount,omitempty"`
	Confidence      float64           `json:"confidence,omitempty"`
	Worker          string            `json:"worker,omitempty"`
	CreatedAt       string            `json:"createdAt,omitempty"`
	UpdatedAt       string            `json:"updatedAt,omitempty"`
	StartedAt       string            `json:"startedAt,omitempty"`
	CompletedAt     string            `json:"completedAt,omitempty"`
}

// JobStatus is the getStatus payload. Result fields are set only once the
// job completed; Error only when it failed.
type JobStatus struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	Confidence      *float64 `json:"confidence,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	WordCount       *int     `json:"wordCount,omitempty"`
	Error           string   `json:"error,omitempty"`
	Progress        Progress `json:"progress"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	StartedAt       string   `json:"startedAt,omitempty"`
	CompletedAt     string   `json:"completedAt,omitempty"`
}

// CancelResponse acknowledges a cancel request.
type CancelResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

// QAResponse wraps a QA result with the job it was computed for.
type QAResponse struct {
	JobID string `json:"jobId"`
	qa.Result
}

// ExportFile is a rendered transcript ready to be served as a download.
type ExportFile struct {
	Data        []byte
	ContentType string
	FileName    string
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// DeleteResponse acknowledges a deleted job.
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool              `json:"running"`
	Workers    int               `json:"workers"`
	Engine     string            `json:"engine"`
	QueueStats map[string]int    `json:"queueStats"`
	ActiveJobs map[string]string `json:"activeJobs,omitempty"`
	LastError  string            `json:"lastError,omitempty"`
	LastJobID  string            `json:"lastJobId,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running          bool               `json:"running"`
	PID              int                `json:"pid"`
	Version          string             `json:"version,omitempty"`
	QueueDBPath      string             `json:"queueDbPath"`
	LockFilePath     string             `json:"lockFilePath"`
	StagingDir       string             `json:"stagingDir"`
	StagingFreeBytes uint64             `json:"stagingFreeBytes"`
	Workflow         WorkflowStatus     `json:"workflow"`
	Dependencies     []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
}
