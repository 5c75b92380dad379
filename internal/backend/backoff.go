package backend

import (
	"math"
	"time"
)

const maxRetryDelay = 60 * time.Second

// delayForAttempt returns the backoff before retry attempt n (1-indexed):
// initial * 2^(n-1), capped at maxRetryDelay.
func delayForAttempt(attempt int, initial time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if initial <= 0 {
		return 0
	}
	d := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if d > maxRetryDelay || d < 0 {
		d = maxRetryDelay
	}
	return d
}
