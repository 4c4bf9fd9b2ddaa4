package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedScript is a user-curated copy of a completed job's output.
// Write-once: scripts are created and listed, never updated.
type SavedScript struct {
	ID         uuid.UUID       `db:"id"         json:"id"`
	Title      string          `db:"title"      json:"title"`
	SourceURL  string          `db:"source_url" json:"source_url"`
	Transcript string          `db:"transcript" json:"transcript"`
	Analysis   *AnalysisResult `db:"analysis"   json:"analysis,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
