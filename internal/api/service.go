package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"scribe/internal/assets"
	"scribe/internal/cache"
	"scribe/internal/export"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/qa"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// Notifier is told when a job was enqueued so an idle worker can pick it up.
type Notifier interface {
	Wake()
}

// ServiceOptions configures a JobService. Store is required.
type ServiceOptions struct {
	Store        queue.Repository
	Cache        cache.Cache
	Notifier     Notifier
	EngineName   string
	QAMaxSamples int
	Logger       *slog.Logger
}

// JobService implements the caller-facing job operations.
type JobService struct {
	store      queue.Repository
	cache      cache.Cache
	notifier   Notifier
	engineName string
	analyzer   qa.Analyzer
	logger     *slog.Logger
}

// NewJobService constructs a JobService.
func NewJobService(opts ServiceOptions) *JobService {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &JobService{
		store:      opts.Store,
		cache:      c,
		notifier:   opts.Notifier,
		engineName: opts.EngineName,
		analyzer:   qa.Analyzer{MaxSamples: opts.QAMaxSamples},
		logger:     logging.NewComponentLogger(opts.Logger, "job-service"),
	}
}

var errNotReady = errors.New("job not ready")

// CreateJob validates the request and enqueues a pending job. Invalid
// requests are rejected before anything is written.
func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (CreateJobResponse, error) {
	var empty CreateJobResponse
	ref := strings.TrimSpace(req.SourceRef)
	if ref == "" {
		return empty, services.Wrap(services.ErrValidation, "create job", "validate", "sourceRef is required", nil)
	}
	if _, err := assets.Validate(ref); err != nil {
		return empty, err
	}
	lang, err := language.Normalize(req.Language)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "create job", "validate", "unsupported language hint", err)
	}
	options := maps.Clone(req.Options)
	priority, err := queue.PriorityForTier(options[queue.OptionTier])
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "create job", "validate", "invalid options.tier", err)
	}

	job, err := s.store.Enqueue(ctx, queue.NewJob{
		SourceRef:  ref,
		Language:   lang,
		EngineName: s.engineName,
		Priority:   priority,
		Options:    options,
	})
	if err != nil {
		return empty, services.Wrap(services.ErrStorage, "create job", "enqueue", "failed to enqueue job", err)
	}
	logging.WithContext(services.WithJobID(ctx, job.ID), s.logger).Info("job enqueued",
		logging.String("source", ref),
		logging.Int("priority", priority),
		logging.String("language", lang),
		logging.String(logging.FieldEventType, "job_enqueued"),
	)
	if s.notifier != nil {
		s.notifier.Wake()
	}
	return CreateJobResponse{ID: job.ID, Status: string(job.Status), Priority: job.Priority}, nil
}

// GetStatus returns the status payload of a job.
func (s *JobService) GetStatus(ctx context.Context, id string) (JobStatus, error) {
	job, err := s.lookup(ctx, id, "get status")
	if err != nil {
		return JobStatus{}, err
	}
	return StatusFromJob(job), nil
}

// GetJob returns the full job record.
func (s *JobService) GetJob(ctx context.Context, id string) (Job, error) {
	job, err := s.lookup(ctx, id, "get job")
	if err != nil {
		return Job{}, err
	}
	return FromJob(job), nil
}

// CancelJob cancels a pending job or flags a processing one. Cancelling a
// terminal job is acknowledged as a no-op.
func (s *JobService) CancelJob(ctx context.Context, id string) (CancelResponse, error) {
	outcome, err := s.store.Cancel(ctx, id)
	if err != nil {
		return CancelResponse{}, services.Wrap(services.ErrStorage, "cancel job", "update", "failed to cancel job", err)
	}
	if outcome == queue.CancelNotFound {
		return CancelResponse{}, notFound("cancel job", id)
	}
	logging.WithContext(services.WithJobID(ctx, id), s.logger).Info("cancel requested",
		logging.String("outcome", string(outcome)),
		logging.String(logging.FieldEventType, "job_cancel_requested"),
	)
	return CancelResponse{ID: id, Outcome: string(outcome)}, nil
}

// ExportJob renders a completed job's transcript. Rendered bytes are
// memoized in the cache; completed transcripts never change.
func (s *JobService) ExportJob(ctx context.Context, id, format string) (ExportFile, error) {
	target, err := export.ParseFormat(format)
	if err != nil {
		return ExportFile{}, err
	}
	job, err := s.completedJob(ctx, id, "export job")
	if err != nil {
		return ExportFile{}, err
	}
	file := ExportFile{ContentType: target.ContentType(), FileName: target.FileName(job.SourceRef)}

	key := cache.ExportKey(id, string(target))
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Debug("export cache lookup failed", logging.Error(err))
	} else if ok {
		file.Data = data
		return file, nil
	}

	stored, err := s.transcript(ctx, id, "export job")
	if err != nil {
		return ExportFile{}, err
	}
	data, _, err := export.Render(stored.Transcript, string(target))
	if err != nil {
		return ExportFile{}, err
	}
	if err := s.cache.Set(ctx, key, data, 0); err != nil {
		logging.WarnWithContext(s.logger, "export cache store failed", "export_cache_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache backend connectivity"),
			logging.String(logging.FieldImpact, "exports are rendered on every request"),
		)
	}
	file.Data = data
	return file, nil
}

// PerformQA runs the heuristic QA checks against a completed job.
func (s *JobService) PerformQA(ctx context.Context, id string) (QAResponse, error) {
	if _, err := s.completedJob(ctx, id, "qa"); err != nil {
		return QAResponse{}, err
	}
	stored, err := s.transcript(ctx, id, "qa")
	if err != nil {
		return QAResponse{}, err
	}
	return QAResponse{JobID: id, Result: s.analyzer.Analyze(stored.Transcript.Text)}, nil
}

// ListJobs returns jobs filtered by status, oldest first.
func (s *JobService) ListJobs(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "list jobs", "query", "failed to list jobs", err)
	}
	return FromJobs(jobs), nil
}

// Stats returns job counts per status.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "stats", "query", "failed to read job stats", err)
	}
	return MergeQueueStats(stats), nil
}

// DeleteJob removes a terminal job and its transcript.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	deleted, err := s.store.Delete(ctx, id)
	if errors.Is(err, queue.ErrInvalidTransition) {
		return services.Wrap(services.ErrValidation, "delete job", "validate", "job is still pending or processing; cancel it first", nil)
	}
	if err != nil {
		return services.Wrap(services.ErrStorage, "delete job", "delete", "failed to delete job", err)
	}
	if !deleted {
		return notFound("delete job", id)
	}
	for _, format := range export.Formats() {
		_ = s.cache.Delete(ctx, cache.ExportKey(id, string(format)))
	}
	return nil
}

func (s *JobService) lookup(ctx context.Context, id, op string) (*queue.Job, error) {
	job, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, op, "load job", "failed to load job", err)
	}
	if job == nil {
		return nil, notFound(op, id)
	}
	return job, nil
}

func (s *JobService) completedJob(ctx context.Context, id, op string) (*queue.Job, error) {
	job, err := s.lookup(ctx, id, op)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusCompleted {
		return nil, services.Wrap(services.ErrNotFound, op, "check status", fmt.Sprintf("job is %s", job.Status), errNotReady)
	}
	return job, nil
}

func (s *JobService) transcript(ctx context.Context, id, op string) (*queue.StoredTranscript, error) {
	stored, err := s.store.Transcript(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, op, "load transcript", "failed to load transcript", err)
	}
	if stored == nil {
		return nil, services.Wrap(services.ErrNotFound, op, "load transcript", "transcript missing", errNotReady)
	}
	return stored, nil
}

func notFound(op, id string) error {
	return services.Wrap(services.ErrNotFound, op, "lookup", fmt.Sprintf("job %q not found", id), nil)
}
