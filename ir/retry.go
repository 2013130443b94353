package ir

import (
	"math"
	"time"
)

// RetryPolicy is the only operation-level knob persisted in the IR; every
// other execution parameter lives in runtime configuration instead.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
}

// DefaultRetryPolicy never retries: MaxRetries 0 runs the operation exactly
// once on failure.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        0,
	InitialDelay:      0,
	BackoffMultiplier: 1,
	MaxDelay:          0,
}

// DelayBeforeAttempt returns how long to wait before overall dispatch
// attempt k (1-indexed; k=1 is the original attempt, k=2 is the first
// retry, and so on). runWithRetry only calls it for k >= 2, so the
// original attempt never waits.
// delay = min(initialDelay * multiplier^(k-1), maxDelay).
func (r RetryPolicy) DelayBeforeAttempt(k int) time.Duration {
	if k <= 0 {
		return 0
	}
	mult := r.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(r.InitialDelay) * math.Pow(mult, float64(k-1))
	if r.MaxDelay > 0 && time.Duration(d) > r.MaxDelay {
		return r.MaxDelay
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
