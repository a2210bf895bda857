// Package retry wraps fallible operations with bounded retries and
// exponential backoff. A classifier decides whether a given failure is worth
// retrying; everything else propagates immediately.
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Classifier reports whether an error should be retried.
type Classifier func(err error) bool

// Executor retries an operation up to MaxRetries times after the initial
// attempt, waiting BaseDelay * Factor^n between attempts.
type Executor struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
	Retryable  Classifier

	// OnRetry, when set, is called before each backoff sleep with the
	// 1-based retry number, the error that triggered it, and the wait.
	OnRetry func(retry int, err error, wait time.Duration)
}

// New returns an Executor with the default policy: 3 retries, 1s base delay,
// doubling, transient-transport classification.
func New() *Executor {
	return &Executor{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Factor:     2,
		Retryable:  Transient,
	}
}

// Do runs op, retrying per policy. The returned error is the last attempt's
// error; when retries were exhausted it is wrapped with the attempt count so
// callers can tell an exhausted retry from a first-shot failure.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	retryable := e.Retryable
	if retryable == nil {
		retryable = Transient
	}

	var lastErr error
	attempts := e.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		wait := e.backoff(attempt)
		if e.OnRetry != nil {
			e.OnRetry(attempt+1, lastErr, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

func (e *Executor) backoff(attempt int) time.Duration {
	base := e.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	factor := e.Factor
	if factor <= 0 {
		factor = 2
	}

	wait := float64(base)
	for i := 0; i < attempt; i++ {
		wait *= factor
	}
	return time.Duration(wait)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// transientPatterns are matched case-insensitively against error text.
// Transport failures surface as strings from the SDKs and the directory
// client, so text matching is the only classification available.
var transientPatterns = []string{
	"connection reset",
	"econnreset",
	"connection refused",
	"stream is not readable",
	"timeout",
	"timed out",
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	"400",
	"bad request",
	"502",
	"503",
	"504",
	"overloaded",
	"temporarily unavailable",
}

// Transient is the default classifier for retryable transport failures.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// connectionPatterns identify failures where the underlying session is
// likely dead and should be re-established before the next attempt.
var connectionPatterns = []string{
	"connection reset",
	"econnreset",
	"connection refused",
	"broken pipe",
	"stream is not readable",
	"unexpected eof",
	"session not found",
	"invalid session",
	"transport not initialized",
}

// IsConnectionError reports whether the error looks like a dead connection
// or invalidated session, as opposed to a transient server-side condition.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
