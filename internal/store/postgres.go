package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, source_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.SourceURL, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	var analysisJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, source_url, status, error_message, transcript, analysis, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.SourceURL, &j.Status, &j.ErrorMessage, &j.Transcript,
		&analysisJSON, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if analysisJSON != nil {
		var a models.AnalysisResult
		if err := json.Unmarshal(analysisJSON, &a); err != nil {
			return nil, fmt.Errorf("decode job analysis: %w", err)
		}
		j.Analysis = &a
	}
	return &j, nil
}

var validTransitions = map[string][]string{
	models.JobStatusQueued:       {models.JobStatusDownloading, models.JobStatusError},
	models.JobStatusDownloading:  {models.JobStatusUploading, models.JobStatusTranscribing, models.JobStatusCompleted, models.JobStatusError},
	models.JobStatusUploading:    {models.JobStatusTranscribing, models.JobStatusError},
	models.JobStatusTranscribing: {models.JobStatusCompleted, models.JobStatusError},
}

// UpdateJobStatus moves a job along the state machine in a single atomic
// UPDATE. Intermediate statuses clear any previous error and result fields;
// completed requires WithResult; error requires WithErrorMessage.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := ApplyJobUpdateOptions(opts)

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	valid := false
	for _, allowed := range validTransitions[currentStatus] {
		if allowed == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()

	switch status {
	case models.JobStatusCompleted:
		if params.Transcript == nil || params.Analysis == nil {
			return fmt.Errorf("completed status requires a transcript and analysis")
		}
		analysisJSON, err := json.Marshal(params.Analysis)
		if err != nil {
			return fmt.Errorf("encode analysis: %w", err)
		}
		_, err = s.pool.Exec(ctx,
			`UPDATE jobs SET status = $2, transcript = $3, analysis = $4,
			 error_message = NULL, updated_at = $5 WHERE id = $1`,
			id, status, *params.Transcript, analysisJSON, now)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}

	case models.JobStatusError:
		msg := "unknown error"
		if params.ErrorMessage != nil {
			msg = *params.ErrorMessage
		}
		_, err = s.pool.Exec(ctx,
			`UPDATE jobs SET status = $2, error_message = $3,
			 transcript = NULL, analysis = NULL, updated_at = $4 WHERE id = $1`,
			id, status, msg, now)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}

	default:
		_, err = s.pool.Exec(ctx,
			`UPDATE jobs SET status = $2, error_message = NULL,
			 transcript = NULL, analysis = NULL, updated_at = $3 WHERE id = $1`,
			id, status, now)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) FailStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error_message = $2,
		 transcript = NULL, analysis = NULL, updated_at = NOW()
		 WHERE status NOT IN ($3, $4) AND updated_at < $5`,
		models.JobStatusError, "job interrupted by server restart",
		models.JobStatusCompleted, models.JobStatusError, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Saved scripts ---

func (s *PostgresStore) CreateScript(ctx context.Context, script *models.SavedScript) error {
	var analysisJSON []byte
	if script.Analysis != nil {
		var err error
		analysisJSON, err = json.Marshal(script.Analysis)
		if err != nil {
			return fmt.Errorf("encode script analysis: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_scripts (id, title, source_url, transcript, analysis, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		script.ID, script.Title, script.SourceURL, script.Transcript, analysisJSON, script.CreatedAt)
	if err != nil {
		return fmt.Errorf("create script: %w", err)
	}
	return nil
}

const maxScriptPage = 200

func (s *PostgresStore) ListScripts(ctx context.Context, limit int) ([]*models.SavedScript, error) {
	if limit <= 0 || limit > maxScriptPage {
		limit = maxScriptPage
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, source_url, transcript, analysis, created_at
		 FROM saved_scripts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	scripts := []*models.SavedScript{}
	for rows.Next() {
		var sc models.SavedScript
		var analysisJSON []byte
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.SourceURL, &sc.Transcript,
			&analysisJSON, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		if analysisJSON != nil {
			var a models.AnalysisResult
			if err := json.Unmarshal(analysisJSON, &a); err != nil {
				return nil, fmt.Errorf("decode script analysis: %w", err)
			}
			sc.Analysis = &a
		}
		scripts = append(scripts, &sc)
	}
	return scripts, rows.Err()
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
