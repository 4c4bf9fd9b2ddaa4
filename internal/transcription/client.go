// Package transcription submits audio to a remote speech-to-text service
// and polls until the transcript reaches a terminal state.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/resolver"
)

// Sentinel errors for transcription failures.
var (
	ErrMissingAPIKey = errors.New("transcription api key not configured")
	ErrRemoteFailed  = errors.New("transcription service reported failure")
	ErrPollTimeout   = errors.New("transcription polling budget exhausted")
)

var errNotReady = errors.New("transcription not ready")

const (
	defaultPollInterval = 2500 * time.Millisecond
	defaultMaxPolls     = 120
)

// Client is the interface for remote speech-to-text.
type Client interface {
	Transcribe(ctx context.Context, media resolver.MediaHandle) (string, error)
}

// HTTPClient implements Client against an AssemblyAI-style HTTP API:
// a raw-bytes upload endpoint, a JSON submit endpoint returning a job id,
// and a status endpoint polled until completed or error.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	maxPolls     uint64
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithPollPolicy overrides the polling interval and attempt budget.
func WithPollPolicy(interval time.Duration, maxPolls uint64) Option {
	return func(c *HTTPClient) {
		c.pollInterval = interval
		c.maxPolls = maxPolls
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// NewHTTPClient creates a transcription client. The API key may be empty;
// it is checked at the point of use so a misconfigured deployment fails
// individual jobs instead of refusing to start.
func NewHTTPClient(baseURL, apiKey string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads raw audio when needed, submits the transcription
// request, and polls to a terminal state. Only full-completion text is
// returned; the service returning no text yields an empty string.
func (c *HTTPClient) Transcribe(ctx context.Context, media resolver.MediaHandle) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	audioURL := media.URL
	if !media.IsRemote() {
		uploaded, err := c.upload(ctx, media.Data)
		if err != nil {
			return "", fmt.Errorf("uploading audio: %w", err)
		}
		audioURL = uploaded
	}

	id, err := c.submit(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("submitting transcription: %w", err)
	}
	slog.Info("transcription submitted", "transcript_id", id)

	return c.poll(ctx, id)
}

func (c *HTTPClient) poll(ctx context.Context, id string) (string, error) {
	var text string

	op := func() error {
		st, err := c.transcriptStatus(ctx, id)
		if err != nil {
			// Transient transport failure: keep polling within the budget.
			return err
		}
		switch st.Status {
		case "completed":
			text = st.Text
			return nil
		case "error":
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrRemoteFailed, st.Error))
		default:
			return errNotReady
		}
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), c.maxPolls-1),
		ctx)

	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, errNotReady) {
			return "", fmt.Errorf("%w after %d attempts", ErrPollTimeout, c.maxPolls)
		}
		return "", err
	}
	return text, nil
}

// --- wire calls ---

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (c *HTTPClient) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no url", ErrRemoteFailed)
	}
	return resp.UploadURL, nil
}

func (c *HTTPClient) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", fmt.Errorf("encoding submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building submit request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var resp transcriptResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: submit returned no id", ErrRemoteFailed)
	}
	return resp.ID, nil
}

func (c *HTTPClient) transcriptStatus(ctx context.Context, id string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	var resp transcriptResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) do(req *http.Request, target any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRemoteFailed,
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
