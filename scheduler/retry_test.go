package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maccontainer/buildengine/ir"
)

func TestRunWithRetrySucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), ir.DefaultRetryPolicy, nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("runWithRetry = %v, want nil", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRunWithRetryRetriesUntilSuccess(t *testing.T) {
	policy := ir.RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 1, MaxDelay: 10 * time.Millisecond}
	calls := 0
	var retriedAttempts []int
	err := runWithRetry(context.Background(), policy, func(attempt int, err error) {
		retriedAttempts = append(retriedAttempts, attempt)
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("runWithRetry = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(retriedAttempts) != 2 {
		t.Fatalf("onRetry invoked %d times, want 2 (only failed attempts before success)", len(retriedAttempts))
	}
}

func TestRunWithRetryExhaustsAndReturnsLastError(t *testing.T) {
	policy := ir.RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffMultiplier: 1, MaxDelay: 10 * time.Millisecond}
	calls := 0
	wantErr := errors.New("permanent")
	err := runWithRetry(context.Background(), policy, nil, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("runWithRetry = %v, want %v", err, wantErr)
	}
	if calls != 3 { // initial attempt + 2 retries
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRunWithRetryCancellationStopsAttempts(t *testing.T) {
	policy := ir.RetryPolicy{MaxRetries: 5, InitialDelay: 50 * time.Millisecond, BackoffMultiplier: 1, MaxDelay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := runWithRetry(ctx, policy, nil, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatalf("runWithRetry = nil, want an error after cancellation")
	}
	if calls >= 6 {
		t.Fatalf("calls = %d, cancellation did not stop retries", calls)
	}
}
