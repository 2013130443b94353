package scheduler

import (
	"context"
	"time"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/ir"
)

// runWithRetry invokes attempt up to policy.MaxRetries+1 times,
// sleeping policy.DelayBeforeAttempt(k) before each retry attempt k
// (1-indexed, so k >= 2; the first attempt does not sleep) and checking
// ctx before every attempt, including the first. No failure is reported
// per attempt here: onRetry, if non-nil, is called after a failed
// attempt that will be retried, and the scheduler's callback counts it
// and reports it as an OperationLog line.
func runWithRetry(ctx context.Context, policy ir.RetryPolicy, onRetry func(attempt int, err error), attempt func(ctx context.Context) error) error {
	var lastErr error
	for k := 1; k <= policy.MaxRetries+1; k++ {
		if ctx.Err() != nil {
			return errdefs.Cancelled()
		}
		if k > 1 {
			delay := policy.DelayBeforeAttempt(k)
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return errdefs.Cancelled()
				}
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if k <= policy.MaxRetries && onRetry != nil {
			onRetry(k, lastErr)
		}
	}
	return lastErr
}
