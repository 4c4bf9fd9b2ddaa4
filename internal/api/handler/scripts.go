package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api/response"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

const defaultScriptListLimit = 50

// ScriptStore persists and lists saved scripts.
type ScriptStore interface {
	CreateScript(ctx context.Context, script *models.SavedScript) error
	ListScripts(ctx context.Context, limit int) ([]*models.SavedScript, error)
}

// NewCreateScriptHandler returns an http.HandlerFunc for POST /api/v1/scripts.
func NewCreateScriptHandler(st ScriptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title      string                 `json:"title"`
			SourceURL  string                 `json:"source_url"`
			Transcript string                 `json:"transcript"`
			Analysis   *models.AnalysisResult `json:"analysis"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if strings.TrimSpace(req.Transcript) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "transcript is required", nil)
			return
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = "Untitled script"
		}

		script := &models.SavedScript{
			ID:         uuid.New(),
			Title:      title,
			SourceURL:  req.SourceURL,
			Transcript: req.Transcript,
			Analysis:   req.Analysis,
			CreatedAt:  time.Now().UTC(),
		}

		if err := st.CreateScript(r.Context(), script); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to save script", nil)
			return
		}

		response.Created(w, script)
	}
}

// NewListScriptsHandler returns an http.HandlerFunc for GET /api/v1/scripts.
// Results come back newest first.
func NewListScriptsHandler(st ScriptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultScriptListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be a positive integer", nil)
				return
			}
			limit = parsed
		}

		scripts, err := st.ListScripts(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list scripts", nil)
			return
		}

		response.Collection(w, scripts, response.ListMeta{Count: len(scripts), Limit: limit})
	}
}
