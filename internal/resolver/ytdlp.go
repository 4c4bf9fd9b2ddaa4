package resolver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecRunner implements ToolRunner by shelling out to the yt-dlp binary.
type ExecRunner struct {
	binaryPath string
}

// NewExecRunner creates an ExecRunner. An empty binaryPath resolves yt-dlp
// from PATH.
func NewExecRunner(binaryPath string) *ExecRunner {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &ExecRunner{binaryPath: binaryPath}
}

func (r *ExecRunner) ExtractURL(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (r *ExecRunner) DownloadBytes(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Compile-time check that ExecRunner implements ToolRunner.
var _ ToolRunner = (*ExecRunner)(nil)
