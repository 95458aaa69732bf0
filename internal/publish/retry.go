package publish

import (
	"context"
	"log"
	"strings"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 1 * time.Second
)

// retryWithBackoff runs fn until it succeeds, fails permanently, or runs out
// of attempts. The delay doubles after each transient failure.
func retryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[Retry] Attempt %d/%d after %v delay", attempt+1, maxRetries+1, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
		if attempt < maxRetries {
			log.Printf("[Retry] Retryable error on attempt %d/%d: %v", attempt+1, maxRetries+1, lastErr)
		}
	}

	log.Printf("[Retry] All %d attempts failed, giving up", maxRetries+1)
	return lastErr
}

// isRetryableError reports whether err looks like a transient network failure.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"eof",
		"timeout",
		"connection refused",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"502 bad gateway",
		"503 service unavailable",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
