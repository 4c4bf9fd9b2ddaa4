package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
	// FailStaleJobs marks every job stuck in a non-terminal state for longer
	// than olderThan as errored. Run at startup to clean up jobs stranded by
	// a process restart. Returns the number of jobs failed.
	FailStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)

	CreateScript(ctx context.Context, script *models.SavedScript) error
	ListScripts(ctx context.Context, limit int) ([]*models.SavedScript, error)
}

// JobUpdate carries the optional fields of a status update. Exported so
// alternative Store implementations can interpret the same options.
type JobUpdate struct {
	ErrorMessage *string
	Transcript   *string
	Analysis     *models.AnalysisResult
}

type JobUpdateOption func(*JobUpdate)

// ApplyJobUpdateOptions folds options into a JobUpdate.
func ApplyJobUpdateOptions(opts []JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithErrorMessage attaches the failure message when moving a job to error.
func WithErrorMessage(msg string) JobUpdateOption {
	return func(u *JobUpdate) {
		u.ErrorMessage = &msg
	}
}

// WithResult attaches the transcript and its analysis when moving a job to
// completed. Both are written in the same update so a reader never observes
// one without the other.
func WithResult(transcript string, analysis models.AnalysisResult) JobUpdateOption {
	return func(u *JobUpdate) {
		u.Transcript = &transcript
		u.Analysis = &analysis
	}
}
