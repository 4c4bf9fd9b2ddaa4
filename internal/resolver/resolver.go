// Package resolver turns a source video URL into playable media, either a
// direct stream URL or raw audio bytes, by trying an ordered ladder of
// extraction strategies against an external tool.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrAllStrategiesFailed is returned when every extraction strategy in the
// ladder produced no usable result.
var ErrAllStrategiesFailed = errors.New("all resolution strategies failed")

// Client identity presented to the extraction tool. TikTok serves different
// (and more reliable) media manifests to mobile clients.
const (
	mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) " +
		"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	tiktokReferrer = "https://www.tiktok.com/"
	mobileAPIHint  = "tiktok:api_hostname=api22-normal-c-useast2a.tiktokv.com"
)

// MediaHandle is the resolver's output: a remote-fetchable URL or an
// in-memory audio buffer, never both.
type MediaHandle struct {
	URL  string
	Data []byte
}

// IsRemote reports whether the handle carries a URL rather than raw bytes.
func (h MediaHandle) IsRemote() bool {
	return h.URL != ""
}

// ToolRunner is the capability interface over the media-extraction tool, so
// the strategy ladder is testable against fakes.
type ToolRunner interface {
	// ExtractURL runs the tool and returns its captured stdout.
	ExtractURL(ctx context.Context, args []string) (string, error)
	// DownloadBytes runs the tool and returns the byte stream from stdout.
	DownloadBytes(ctx context.Context, args []string) ([]byte, error)
}

// Resolver sequences extraction strategies until one produces media.
type Resolver struct {
	runner   ToolRunner
	proxyURL string
	timeout  time.Duration
}

// New creates a Resolver. proxyURL, when non-empty, is applied to every
// strategy's tool invocation; timeout bounds each single invocation.
func New(runner ToolRunner, proxyURL string, timeout time.Duration) *Resolver {
	return &Resolver{runner: runner, proxyURL: proxyURL, timeout: timeout}
}

type strategy struct {
	name     string
	args     []string
	download bool
}

func (r *Resolver) strategies(sourceURL string) []strategy {
	base := []string{
		"--user-agent", mobileUserAgent,
		"--referer", tiktokReferrer,
		"--geo-bypass",
		"--no-check-certificates",
		"--no-warnings",
		"--no-playlist",
	}
	if r.proxyURL != "" {
		base = append(base, "--proxy", r.proxyURL)
	}

	withBase := func(extra ...string) []string {
		args := append([]string{}, base...)
		args = append(args, extra...)
		return append(args, sourceURL)
	}

	return []strategy{
		{
			name: "bestaudio-mobile-api",
			args: withBase("-f", "bestaudio", "--extractor-args", mobileAPIHint, "--get-url"),
		},
		{
			name: "best-mobile-api",
			args: withBase("-f", "best", "--extractor-args", mobileAPIHint, "--get-url"),
		},
		{
			name: "generic",
			args: withBase("-f", "best", "--get-url"),
		},
		{
			name:     "bestaudio-download",
			args:     withBase("-f", "bestaudio/best", "-o", "-"),
			download: true,
		},
	}
}

// Resolve normalizes the source URL and walks the strategy ladder. The first
// strategy producing a non-empty result wins; failures along the way are
// logged, not surfaced. When every strategy is exhausted the error carries
// the last strategy's diagnostic.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (MediaHandle, error) {
	normalized := NormalizeURL(sourceURL)
	if normalized != sourceURL {
		slog.Info("normalized source url", "from", sourceURL, "to", normalized)
	}

	var lastDiag string
	for _, s := range r.strategies(normalized) {
		handle, err := r.attempt(ctx, s)
		if err != nil {
			lastDiag = err.Error()
			slog.Warn("resolution strategy failed",
				"strategy", s.name, "url", normalized, "error", err)
			continue
		}
		slog.Info("media resolved", "strategy", s.name, "url", normalized,
			"remote", handle.IsRemote())
		return handle, nil
	}

	return MediaHandle{}, fmt.Errorf("%w: %s", ErrAllStrategiesFailed, lastDiag)
}

func (r *Resolver) attempt(ctx context.Context, s strategy) (MediaHandle, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if s.download {
		data, err := r.runner.DownloadBytes(ctx, s.args)
		if err != nil {
			return MediaHandle{}, err
		}
		if len(data) == 0 {
			return MediaHandle{}, errors.New("empty download")
		}
		return MediaHandle{Data: data}, nil
	}

	out, err := r.runner.ExtractURL(ctx, s.args)
	if err != nil {
		return MediaHandle{}, err
	}
	// The tool may emit warnings before the URL; the last line is the result.
	mediaURL := lastLine(out)
	if mediaURL == "" {
		return MediaHandle{}, errors.New("empty output")
	}
	return MediaHandle{URL: mediaURL}, nil
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
