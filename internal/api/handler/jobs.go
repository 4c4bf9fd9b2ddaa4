package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api/response"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/store"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

const maxSourceURLLength = 2048

// JobSubmitter creates a job and starts its pipeline in the background.
type JobSubmitter interface {
	Submit(ctx context.Context, sourceURL string) (*models.Job, error)
}

// JobReader loads persisted jobs for status polls.
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// NewSubmitJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// The job is accepted, not finished: clients poll the returned id.
func NewSubmitJobHandler(svc JobSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SourceURL string `json:"source_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.SourceURL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "source_url is required", nil)
			return
		}
		if len(req.SourceURL) > maxSourceURLLength {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "source_url is too long", nil)
			return
		}
		parsed, err := url.Parse(req.SourceURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"source_url must be an absolute http(s) URL", nil)
			return
		}

		job, err := svc.Submit(r.Context(), req.SourceURL)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create job", nil)
			return
		}

		response.Accepted(w, job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(st JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		job, err := st.GetJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load job", nil)
			return
		}

		response.JSON(w, job)
	}
}
