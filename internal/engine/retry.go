package engine

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds transient-failure retries for a single step. Only tool
// failures classified as transient are retried; validation failures,
// timeouts, and permanent tool failures never are.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocation attempts per step,
	// including the first.
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration

	// Multiplier grows the delay after each retry.
	Multiplier float64
}

// DefaultRetryPolicy returns the documented default retry configuration:
// three attempts with exponential backoff from 500ms up to 10s, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// newBackOff builds the per-step backoff schedule. Attempts are bounded by
// MaxAttempts, not elapsed time.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
