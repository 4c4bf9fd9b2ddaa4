package cache

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:status:%s", jobID)
}

// TranscriptKey caches a finished transcript by the hash of its normalized
// source URL, so re-submitting the same video skips resolution and
// transcription entirely.
func TranscriptKey(normalizedURL string) string {
	return fmt.Sprintf("transcript:%x", sha256.Sum256([]byte(normalizedURL)))
}

func RateLimitKey(clientIP string) string {
	return fmt.Sprintf("ratelimit:%s", clientIP)
}
