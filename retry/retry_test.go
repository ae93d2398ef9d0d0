package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/syndicate/models"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	const failures = 2
	calls := 0
	start := time.Now()

	got, err := Do(context.Background(), "flaky", Policy{
		MaxRetries: 3,
		BaseDelay:  10 * time.Millisecond,
		Timeout:    time.Second,
	}, func(ctx context.Context) (string, error) {
		calls++
		if calls <= failures {
			return "", errors.New("boom")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want ok", got)
	}
	if calls != failures+1 {
		t.Errorf("calls = %d, want %d", calls, failures+1)
	}

	// Total delay must be at least baseDelay*(2^0 + 2^1) for 2 failures.
	minDelay := 10 * time.Millisecond * (1 + 2)
	if elapsed := time.Since(start); elapsed < minDelay {
		t.Errorf("elapsed %s shorter than minimum backoff %s", elapsed, minDelay)
	}
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "always-down", Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Timeout:    time.Second,
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "once", Policy{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		Timeout:    time.Second,
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 1 {
		t.Errorf("expected single-attempt exhaustion, got %v", err)
	}
}

func TestDo_AttemptTimeoutCancelsOperation(t *testing.T) {
	_, err := Do(context.Background(), "slow", Policy{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		Timeout:    20 * time.Millisecond,
	}, func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 1, nil
		}
	})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if !errors.Is(exhausted.LastErr, context.DeadlineExceeded) {
		t.Errorf("last error = %v, want deadline exceeded", exhausted.LastErr)
	}
}

func TestDo_InvalidTimeoutFailsFast(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "misconfigured", Policy{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		Timeout:    0,
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if calls != 0 {
		t.Errorf("operation ran %d times despite invalid policy", calls)
	}
	var werr *models.WorkflowError
	if !errors.As(err, &werr) || werr.Code != models.ErrCodeConfig {
		t.Errorf("expected INVALID_CONFIG error, got %v", err)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, "cancelled", Policy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		Timeout:    time.Second,
	}, func(ctx context.Context) (int, error) {
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
