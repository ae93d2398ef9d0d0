// Package retry provides the generic timeout + exponential-backoff wrapper
// used around every long-running external operation: content collection,
// crawl fetches, and each destination post.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/syndicate/models"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	// Zero means a single attempt.
	MaxRetries int

	// BaseDelay is the backoff unit; the wait before retry n is
	// BaseDelay * 2^(n-1).
	BaseDelay time.Duration

	// Timeout is the hard deadline for each individual attempt.
	Timeout time.Duration
}

func (p Policy) validate() error {
	switch {
	case p.Timeout <= 0:
		return models.NewWorkflowError(models.ErrCodeConfig,
			fmt.Sprintf("retry timeout must be positive, got %s", p.Timeout), nil)
	case p.MaxRetries < 0:
		return models.NewWorkflowError(models.ErrCodeConfig,
			fmt.Sprintf("max retries must be >= 0, got %d", p.MaxRetries), nil)
	case p.BaseDelay < 0:
		return models.NewWorkflowError(models.ErrCodeConfig,
			fmt.Sprintf("base delay must be >= 0, got %s", p.BaseDelay), nil)
	}
	return nil
}

// ExhaustedError is returned after all attempts failed. It carries the last
// error and the attempt count; failures are never silently swallowed.
type ExhaustedError struct {
	Name     string
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %s failed after %d attempt(s): %v", e.Name, e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Do runs op under the policy. Each attempt gets its own deadline-bound
// context, so a hung operation is cancelled rather than left running. The
// first success returns immediately; exhaustion returns an *ExhaustedError.
//
// The backoff sleep is interruptible: if the parent context is cancelled
// while waiting, Do returns ctx.Err() right away.
func Do[T any](ctx context.Context, name string, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := p.validate(); err != nil {
		return zero, err
	}

	attempts := p.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		start := time.Now()
		result, err := op(attemptCtx)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			slog.Debug("operation succeeded",
				"op", name,
				"attempt", attempt,
				"elapsed", elapsed,
			)
			return result, nil
		}

		lastErr = err
		slog.Warn("operation attempt failed",
			"op", name,
			"attempt", attempt,
			"elapsed", elapsed,
			"error", err,
		)

		if attempt == attempts {
			break
		}

		backoff := p.BaseDelay * (1 << (attempt - 1))
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return zero, &ExhaustedError{Name: name, Attempts: attempts, LastErr: lastErr}
}
