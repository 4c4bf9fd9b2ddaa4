package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued       = "queued"
	JobStatusDownloading  = "downloading"
	JobStatusUploading    = "uploading"
	JobStatusTranscribing = "transcribing"
	JobStatusCompleted    = "completed"
	JobStatusError        = "error"
)

// Job tracks one transcribe+analyze request for a single source video.
// The API returns the id on POST /api/v1/jobs; the client polls
// GET /api/v1/jobs/{id} until status is completed or error.
type Job struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	SourceURL    string          `db:"source_url"    json:"source_url"`
	Status       string          `db:"status"        json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error,omitempty"`
	Transcript   *string         `db:"transcript"    json:"transcript,omitempty"`
	Analysis     *AnalysisResult `db:"analysis"      json:"analysis,omitempty"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
}

// IsTerminal reports whether the status allows no further transitions.
func IsTerminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusError
}
