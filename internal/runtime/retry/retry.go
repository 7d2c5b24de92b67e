package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that a single attempt ran past the per-attempt
// timeout. It is distinct from other handler failures so callers can count
// and alert on slow handlers separately.
type TimeoutError struct {
	Attempt int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt %d exceeded timeout of %s", e.Attempt, e.Timeout)
}

// ExhaustedError reports that every allowed attempt failed. LastErr is the
// error from the final attempt.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// IsTimeout reports whether err is, or wraps, a per-attempt timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsExhausted reports whether err is, or wraps, a retry exhaustion.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Policy drives retry behaviour for a unit of work. The delay before attempt
// n+1 is BaseDelay doubled after every failure, so BaseDelay, 2*BaseDelay,
// 4*BaseDelay and so on.
type Policy struct {
	// MaxAttempts counts the first try plus retries. Values below 1 are
	// treated as 1.
	MaxAttempts int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// PerAttemptTimeout bounds one invocation of the work function. Zero
	// disables the bound.
	PerAttemptTimeout time.Duration
	// OnRetry, when set, is called after each failed attempt that will be
	// retried. It is not called for the final failure.
	OnRetry func(attempt int, delay time.Duration, err error)

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait after the given 1-based attempt number fails.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// Execute runs work until it succeeds, the attempts are exhausted, or ctx is
// done. A nil return means work succeeded. Context cancellation is returned
// as ctx.Err() so callers can tell shutdown apart from exhaustion.
func (p Policy) Execute(ctx context.Context, work func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = p.runAttempt(ctx, attempt, work)
		if lastErr == nil {
			return nil
		}
		// A cancelled parent context ends the loop immediately. A per-attempt
		// timeout does not, it only fails this attempt.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt == maxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, LastErr: lastErr}
}

func (p Policy) runAttempt(ctx context.Context, attempt int, work func(ctx context.Context) error) error {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if p.PerAttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, p.PerAttemptTimeout)
		defer cancel()
	}

	err := work(attemptCtx)
	if err == nil {
		return nil
	}
	// Translate a deadline hit on the attempt context into the dedicated
	// timeout error, but only when the parent is still alive.
	if errors.Is(err, context.DeadlineExceeded) && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return &TimeoutError{Attempt: attempt, Timeout: p.PerAttemptTimeout}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
