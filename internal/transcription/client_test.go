package transcription_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/resolver"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/transcription"
)

// fakeService is a scriptable AssemblyAI-style endpoint: it serves the
// upload, submit and status routes and counts hits per route.
type fakeService struct {
	t            *testing.T
	statuses     []string // consumed one per status poll; last repeats
	text         string
	remoteErr    string
	uploadCount  atomic.Int64
	submitCount  atomic.Int64
	statusCount  atomic.Int64
	uploadedSize atomic.Int64
	audioURL     atomic.Value
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(f.t, err)
		f.uploadedSize.Store(int64(len(body)))
		f.uploadCount.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.fake/upload/abc"})
	})

	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AudioURL string `json:"audio_url"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.audioURL.Store(req.AudioURL)
		f.submitCount.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_123", "status": "queued"})
	})

	mux.HandleFunc("GET /v2/transcript/tr_123", func(w http.ResponseWriter, r *http.Request) {
		n := f.statusCount.Add(1)
		idx := int(n) - 1
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		resp := map[string]string{"id": "tr_123", "status": f.statuses[idx]}
		if f.statuses[idx] == "completed" {
			resp["text"] = f.text
		}
		if f.statuses[idx] == "error" {
			resp["error"] = f.remoteErr
		}
		json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func newTestClient(t *testing.T, f *fakeService, maxPolls uint64) *transcription.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return transcription.NewHTTPClient(srv.URL, "test-key",
		transcription.WithPollPolicy(time.Millisecond, maxPolls))
}

func TestTranscribe_RemoteURL(t *testing.T) {
	svc := &fakeService{t: t, statuses: []string{"queued", "queued", "queued", "completed"}, text: "hello world"}
	c := newTestClient(t, svc, 120)

	text, err := c.Transcribe(context.Background(), resolver.MediaHandle{URL: "https://cdn.example.com/a.m4a"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	// queued x3 then completed: exactly 4 status checks, no upload.
	assert.EqualValues(t, 4, svc.statusCount.Load())
	assert.EqualValues(t, 0, svc.uploadCount.Load())
	assert.Equal(t, "https://cdn.example.com/a.m4a", svc.audioURL.Load())
}

func TestTranscribe_RawBytesUploadsFirst(t *testing.T) {
	svc := &fakeService{t: t, statuses: []string{"completed"}, text: "from bytes"}
	c := newTestClient(t, svc, 120)

	audio := []byte(strings.Repeat("x", 2048))
	text, err := c.Transcribe(context.Background(), resolver.MediaHandle{Data: audio})
	require.NoError(t, err)
	assert.Equal(t, "from bytes", text)

	assert.EqualValues(t, 1, svc.uploadCount.Load())
	assert.EqualValues(t, 2048, svc.uploadedSize.Load())
	assert.Equal(t, "https://cdn.fake/upload/abc", svc.audioURL.Load())
}

func TestTranscribe_EmptyTextAllowed(t *testing.T) {
	svc := &fakeService{t: t, statuses: []string{"completed"}, text: ""}
	c := newTestClient(t, svc, 120)

	text, err := c.Transcribe(context.Background(), resolver.MediaHandle{URL: "https://cdn.example.com/a.m4a"})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestTranscribe_RemoteError(t *testing.T) {
	svc := &fakeService{t: t, statuses: []string{"processing", "error"}, remoteErr: "audio too short"}
	c := newTestClient(t, svc, 120)

	_, err := c.Transcribe(context.Background(), resolver.MediaHandle{URL: "https://cdn.example.com/a.m4a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, transcription.ErrRemoteFailed)
	assert.Contains(t, err.Error(), "audio too short")
	assert.EqualValues(t, 2, svc.statusCount.Load())
}

func TestTranscribe_PollBudgetExhausted(t *testing.T) {
	svc := &fakeService{t: t, statuses: []string{"processing"}}
	c := newTestClient(t, svc, 120)

	_, err := c.Transcribe(context.Background(), resolver.MediaHandle{URL: "https://cdn.example.com/a.m4a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, transcription.ErrPollTimeout)
	assert.EqualValues(t, 120, svc.statusCount.Load())
}

func TestTranscribe_MissingAPIKey(t *testing.T) {
	c := transcription.NewHTTPClient("http://localhost:0", "")

	_, err := c.Transcribe(context.Background(), resolver.MediaHandle{URL: "https://cdn.example.com/a.m4a"})
	assert.ErrorIs(t, err, transcription.ErrMissingAPIKey)
}

func TestTranscribe_SubmitServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := transcription.NewHTTPClient(srv.URL, "test-key",
		transcription.WithPollPolicy(time.Millisecond, 3))

	_, err := c.Transcribe(context.Background(), resolver.MediaHandle{URL: "https://cdn.example.com/a.m4a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, transcription.ErrRemoteFailed)
	assert.Contains(t, err.Error(), "status 502")
}
