package remote

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Policy defines retry behavior for one logical call.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	// ShouldRetry decides whether a failed attempt is worth repeating.
	// It is never consulted for the final attempt.
	ShouldRetry func(*Error) bool
}

// DefaultPolicy retries transient failures three times total, starting at 1s.
var DefaultPolicy = Policy{
	Attempts:     3,
	InitialDelay: time.Second,
	ShouldRetry:  RetryTransient,
}

// RetryAlways repeats every failure until the budget is spent.
func RetryAlways(*Error) bool {
	return true
}

// RetryTransient repeats connectivity failures, unknown transport failures
// and HTTP 408, 429 and 5xx responses.
func RetryTransient(e *Error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindConnectivity, KindUnknown:
		return true
	case KindHTTP:
		return e.Status == http.StatusRequestTimeout ||
			e.Status == http.StatusTooManyRequests ||
			e.Status >= 500
	default:
		return false
	}
}

// RetryFuncByName maps a configuration value to a retry predicate.
func RetryFuncByName(name string) func(*Error) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "always", "all":
		return RetryAlways
	default:
		return RetryTransient
	}
}

// Delay returns the wait before the given 1-based attempt:
// zero for the first, then InitialDelay doubled per further attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 2 || p.InitialDelay <= 0 {
		return 0
	}
	shift := attempt - 2
	if shift > 30 {
		shift = 30
	}
	return p.InitialDelay << uint(shift)
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = RetryTransient
	}
	return p
}

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

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

// retryHooks observe the retry loop.
type retryHooks struct {
	onAttempt func(attempt int, err *Error)
	onRetry   func(attempt int, delay time.Duration, err *Error)
}

// run invokes fn until it succeeds, the policy declines a retry, or the
// attempt budget is spent. It returns the number of invocations and the
// last failure.
func (p Policy) run(ctx context.Context, sleep SleepFunc, hooks retryHooks, fn func(attempt int) *Error) (int, *Error) {
	p = p.normalized()
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr *Error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt)
			if hooks.onRetry != nil {
				hooks.onRetry(attempt, delay, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return attempt - 1, canceled(err)
			}
		}
		if err := ctx.Err(); err != nil {
			return attempt - 1, canceled(err)
		}

		lastErr = fn(attempt)
		if hooks.onAttempt != nil {
			hooks.onAttempt(attempt, lastErr)
		}
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, canceled(ctx.Err())
		}
		if attempt == p.Attempts || lastErr.permanent || !p.ShouldRetry(lastErr) {
			return attempt, lastErr
		}
	}
	return p.Attempts, lastErr
}

func canceled(err error) *Error {
	return &Error{Kind: KindUnknown, Message: CanceledMessage, Err: err}
}
