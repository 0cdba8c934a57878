package queue

import (
	"fmt"
	"strings"
	"time"

	"scribe/internal/transcript"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// HeartbeatExpiredReason is the error message set when a worker stops reporting.
const HeartbeatExpiredReason = "worker heartbeat expired"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority tiers. Higher priority is claimed first.
const (
	TierNormal = "normal"
	TierHigh   = "high"

	PriorityNormal = 0
	PriorityHigh   = 10
)

// PriorityForTier maps a caller tier to a queue priority. An empty tier is normal.
func PriorityForTier(tier string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "", TierNormal:
		return PriorityNormal, nil
	case TierHigh:
		return PriorityHigh, nil
	default:
		return 0, fmt.Errorf("unknown tier %q (expected %s or %s)", tier, TierNormal, TierHigh)
	}
}

// Option keys understood by the pipeline. Other keys are stored untouched.
const (
	OptionTier   = "tier"
	OptionPrompt = "prompt"
)

// Job is one request to transcribe a single source asset.
type Job struct {
	ID              string
	SourceRef       string
	Status          Status
	Priority        int
	Language        string
	EngineName      string
	Options         map[string]string
	CancelRequested bool
	ErrorMessage    string
	TranscriptRef   string
	ProgressPercent float64
	ProgressMessage string
	Worker          string
	DurationSeconds float64
	WordCount       int
	Confidence      float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	LastHeartbeat   *time.Time
}

// Prompt returns the optional vocabulary hint for the engine.
func (j *Job) Prompt() string {
	if j == nil {
		return ""
	}
	return j.Options[OptionPrompt]
}

// NewJob describes a job to enqueue.
type NewJob struct {
	SourceRef  string
	Language   string
	EngineName string
	Priority   int
	Options    map[string]string
}

// StoredTranscript is the persisted result of a completed job.
type StoredTranscript struct {
	JobID      string
	Transcript transcript.Transcript
	Confidence transcript.ConfidenceReport
	CreatedAt  time.Time
}

// CancelOutcome reports what a cancel request did.
type CancelOutcome string

const (
	// CancelRemoved means the job was pending and will never be claimed.
	CancelRemoved CancelOutcome = "cancelled"
	// CancelFlagged means the job is processing; the worker stops at its next checkpoint.
	CancelFlagged CancelOutcome = "cancel_requested"
	// CancelNoop means the job had already reached a terminal status.
	CancelNoop CancelOutcome = "already_terminal"
	// CancelNotFound means no job has the given id.
	CancelNotFound CancelOutcome = "not_found"
)
