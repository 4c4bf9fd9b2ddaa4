package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/analyzer"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api/handler"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/orchestrator"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/resolver"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/store"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

// inMemoryStore backs the end-to-end test with map-based persistence.
type inMemoryStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.Job
	scripts []*models.SavedScript
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *inMemoryStore) Ping(_ context.Context) error { return nil }

func (s *inMemoryStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *inMemoryStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *inMemoryStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	update := store.ApplyJobUpdateOptions(opts)

	job.Status = status
	job.ErrorMessage = update.ErrorMessage
	job.Transcript = update.Transcript
	job.Analysis = update.Analysis
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *inMemoryStore) FailStaleJobs(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (s *inMemoryStore) CreateScript(_ context.Context, script *models.SavedScript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *script
	s.scripts = append([]*models.SavedScript{&cp}, s.scripts...)
	return nil
}

func (s *inMemoryStore) ListScripts(_ context.Context, limit int) ([]*models.SavedScript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.scripts) {
		limit = len(s.scripts)
	}
	out := make([]*models.SavedScript, limit)
	copy(out, s.scripts[:limit])
	return out, nil
}

type staticResolver struct {
	handle resolver.MediaHandle
	err    error
}

func (r *staticResolver) Resolve(_ context.Context, _ string) (resolver.MediaHandle, error) {
	return r.handle, r.err
}

type staticTranscriber struct {
	text string
	err  error
}

func (tr *staticTranscriber) Transcribe(_ context.Context, _ resolver.MediaHandle) (string, error) {
	return tr.text, tr.err
}

func newPipelineRouter(st store.Store, media orchestrator.MediaResolver, stt *staticTranscriber) http.Handler {
	orch := orchestrator.New(st, &stubCache{}, media, stt,
		analyzer.New(analyzer.DefaultVocabulary()))
	return api.NewRouter(api.Dependencies{
		SubmitJobHandler:    handler.NewSubmitJobHandler(orch),
		GetJobHandler:       handler.NewGetJobHandler(st),
		CreateScriptHandler: handler.NewCreateScriptHandler(st),
		ListScriptsHandler:  handler.NewListScriptsHandler(st),
	})
}

func submitJob(t *testing.T, router http.Handler, sourceURL string) uuid.UUID {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/jobs",
		strings.NewReader(`{"source_url":"`+sourceURL+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		Data models.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, models.JobStatusQueued, body.Data.Status)
	return body.Data.ID
}

func pollJob(t *testing.T, router http.Handler, id uuid.UUID) models.Job {
	t.Helper()
	var job models.Job
	require.Eventually(t, func() bool {
		req := httptest.NewRequest("GET", "/api/v1/jobs/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			return false
		}
		var body struct {
			Data models.Job `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			return false
		}
		job = body.Data
		return models.IsTerminal(job.Status)
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestPipeline_SubmitToCompleted(t *testing.T) {
	router := newPipelineRouter(newInMemoryStore(),
		&staticResolver{handle: resolver.MediaHandle{Data: []byte("audio bytes")}},
		&staticTranscriber{text: "Buy now! This secret hack works in 30 days."})

	id := submitJob(t, router, "https://example.com/v/123")
	job := pollJob(t, router, id)

	require.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Transcript)
	require.NotNil(t, job.Analysis)
	assert.Nil(t, job.ErrorMessage)

	assert.False(t, job.Analysis.Structure.HasRiskyClaims)
	assert.Contains(t, job.Analysis.Metrics.PowerWords, "secret")
	assert.Contains(t, job.Analysis.Metrics.PowerWords, "hack")
	assert.Greater(t, job.Analysis.HookScore, 0.0)
}

func TestPipeline_ResolutionFailureSurfacesAsJobError(t *testing.T) {
	router := newPipelineRouter(newInMemoryStore(),
		&staticResolver{err: errors.New("no playable media found")},
		&staticTranscriber{})

	id := submitJob(t, router, "https://example.com/v/456")
	job := pollJob(t, router, id)

	require.Equal(t, models.JobStatusError, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "no playable media")
	assert.Nil(t, job.Transcript)
	assert.Nil(t, job.Analysis)
}

func TestPipeline_SaveCompletedJobAsScript(t *testing.T) {
	st := newInMemoryStore()
	router := newPipelineRouter(st,
		&staticResolver{handle: resolver.MediaHandle{URL: "https://cdn.example.com/a.mp4"}},
		&staticTranscriber{text: "follow for more daily tips"})

	id := submitJob(t, router, "https://example.com/v/789")
	job := pollJob(t, router, id)
	require.Equal(t, models.JobStatusCompleted, job.Status)

	payload, err := json.Marshal(map[string]any{
		"title":      "daily tips",
		"source_url": job.SourceURL,
		"transcript": *job.Transcript,
		"analysis":   job.Analysis,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/scripts", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/scripts", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data []models.SavedScript `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "daily tips", list.Data[0].Title)
	assert.Equal(t, "follow for more daily tips", list.Data[0].Transcript)
	assert.NotNil(t, list.Data[0].Analysis)
}
