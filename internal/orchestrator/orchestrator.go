// Package orchestrator owns the job state machine. It sequences media
// resolution, transcription and analysis for one job, persisting every
// transition so concurrent status reads always see current progress.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/analyzer"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/cache"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/resolver"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/store"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/transcription"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

const (
	statusTTL     = 30 * time.Minute
	transcriptTTL = 24 * time.Hour
)

// MediaResolver resolves a source URL into playable media.
type MediaResolver interface {
	Resolve(ctx context.Context, sourceURL string) (resolver.MediaHandle, error)
}

// Orchestrator drives jobs from queued to a terminal state. It is the only
// component that mutates job records.
type Orchestrator struct {
	store    store.Store
	cache    cache.Cache
	media    MediaResolver
	stt      transcription.Client
	analyzer *analyzer.Analyzer
}

// New creates an Orchestrator.
func New(st store.Store, ca cache.Cache, media MediaResolver, stt transcription.Client, an *analyzer.Analyzer) *Orchestrator {
	return &Orchestrator{store: st, cache: ca, media: media, stt: stt, analyzer: an}
}

// Submit creates a queued job and dispatches its run in the background.
// The returned job reflects the freshly created record; callers that need
// to wait for the run can use Dispatch directly instead.
func (o *Orchestrator) Submit(ctx context.Context, sourceURL string) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		SourceURL: sourceURL,
		Status:    models.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	_ = o.cache.SetJobStatus(ctx, job.ID, models.JobStatusQueued, statusTTL)

	o.Dispatch(job.ID)
	return job, nil
}

// Dispatch runs the job on a background goroutine and returns a channel
// closed when the run finishes. The caller may await or ignore it.
// Panics never escape: they are converted to a persisted error status.
func (o *Orchestrator) Dispatch(jobID uuid.UUID) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in job run", "job_id", jobID, "panic", r)
				o.fail(context.Background(), jobID, fmt.Errorf("panic: %v", r))
			}
		}()
		o.Run(context.Background(), jobID)
	}()
	return done
}

// Run executes a single pass of the state machine for the job. It only
// proceeds when the persisted status is exactly queued, which makes a
// duplicate invocation for the same id a no-op. Failures are persisted,
// never returned: a job run must not take the process down with it.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		slog.Error("loading job", "job_id", jobID, "error", err)
		return
	}
	if job.Status != models.JobStatusQueued {
		slog.Info("job not queued, skipping run", "job_id", jobID, "status", job.Status)
		return
	}

	if err := o.execute(ctx, job); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// Another run claimed the job between our read and the first
			// transition; theirs proceeds, ours stands down.
			slog.Info("job claimed by concurrent run", "job_id", jobID)
			return
		}
		o.fail(ctx, jobID, err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, job *models.Job) error {
	if err := o.transition(ctx, job.ID, models.JobStatusDownloading); err != nil {
		return err
	}

	normalized := resolver.NormalizeURL(job.SourceURL)
	if text, ok := o.cachedTranscript(ctx, normalized); ok {
		slog.Info("transcript cache hit", "job_id", job.ID)
		return o.complete(ctx, job.ID, text)
	}

	media, err := o.media.Resolve(ctx, job.SourceURL)
	if err != nil {
		return err
	}

	if !media.IsRemote() {
		if err := o.transition(ctx, job.ID, models.JobStatusUploading); err != nil {
			return err
		}
	}
	if err := o.transition(ctx, job.ID, models.JobStatusTranscribing); err != nil {
		return err
	}

	text, err := o.stt.Transcribe(ctx, media)
	if err != nil {
		return err
	}

	_ = o.cache.Set(ctx, cache.TranscriptKey(normalized), []byte(text), transcriptTTL)
	return o.complete(ctx, job.ID, text)
}

// transition persists an intermediate status and mirrors it to the cache.
func (o *Orchestrator) transition(ctx context.Context, jobID uuid.UUID, status string) error {
	if err := o.store.UpdateJobStatus(ctx, jobID, status); err != nil {
		return fmt.Errorf("persisting status %s: %w", status, err)
	}
	_ = o.cache.SetJobStatus(ctx, jobID, status, statusTTL)
	slog.Info("job status", "job_id", jobID, "status", status)
	return nil
}

// complete analyzes the transcript and persists it together with the
// completed status in one atomic update.
func (o *Orchestrator) complete(ctx context.Context, jobID uuid.UUID, transcript string) error {
	result := o.analyzer.Analyze(transcript)
	if err := o.store.UpdateJobStatus(ctx, jobID, models.JobStatusCompleted,
		store.WithResult(transcript, result)); err != nil {
		return fmt.Errorf("persisting result: %w", err)
	}
	_ = o.cache.SetJobStatus(ctx, jobID, models.JobStatusCompleted, statusTTL)
	slog.Info("job completed", "job_id", jobID, "transcript_len", len(transcript))
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	slog.Error("job failed", "job_id", jobID, "error", cause)
	if err := o.store.UpdateJobStatus(ctx, jobID, models.JobStatusError,
		store.WithErrorMessage(cause.Error())); err != nil {
		slog.Error("persisting job failure", "job_id", jobID, "error", err)
		return
	}
	_ = o.cache.SetJobStatus(ctx, jobID, models.JobStatusError, statusTTL)
}

func (o *Orchestrator) cachedTranscript(ctx context.Context, normalizedURL string) (string, bool) {
	val, found, err := o.cache.Get(ctx, cache.TranscriptKey(normalizedURL))
	if err != nil || !found {
		return "", false
	}
	return string(val), true
}
