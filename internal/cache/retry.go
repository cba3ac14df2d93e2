package cache

import (
	"time"

	"github.com/nadav-galili/starter/internal/apperr"
)

// Default retry budgets. Mutations retry less aggressively because a
// retried write can have side effects.
const (
	DefaultQueryRetries    = 3
	DefaultMutationRetries = 1
)

const (
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
)

// ShouldRetry decides whether a failed attempt is worth repeating.
// failureCount is 0-indexed: the first failure arrives with count 0.
//
// Anything that is not a structured HTTP error is treated as a transient
// network failure. For HTTP errors, 5xx and the explicitly retryable
// client codes 408 and 429 retry; other 4xx do not. Statuses outside both
// ranges retry as a conservative default. Cancellation never retries.
func ShouldRetry(failureCount int, err error, maxRetries int) bool {
	if failureCount >= maxRetries {
		return false
	}
	if apperr.IsCancelled(err) {
		return false
	}

	he, ok := apperr.IsHTTPError(err)
	if !ok {
		return true
	}
	switch {
	case he.Status >= 500:
		return true
	case he.Status == 408 || he.Status == 429:
		return true
	case he.Status >= 400:
		return false
	default:
		return true
	}
}

// Backoff returns the delay before retry attempt attemptIndex (0-indexed):
// 1s, 2s, 4s, 8s, ... capped at 30s.
func Backoff(attemptIndex int) time.Duration {
	if attemptIndex < 0 {
		attemptIndex = 0
	}
	// 1<<5 seconds already exceeds the cap.
	if attemptIndex > 5 {
		return maxBackoff
	}
	d := baseBackoff << uint(attemptIndex)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
