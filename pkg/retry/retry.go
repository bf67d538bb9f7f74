package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// temporary is implemented by errors that may succeed on a later attempt
type temporary interface {
	Temporary() bool
}

// IsRetryable reports whether err is worth retrying. Errors implementing
// Temporary() bool decide for themselves, and that classification wins
// even when the chain unwraps to a context sentinel: a per-call timeout
// wrapped as a temporary error is retryable, while expiry of the overall
// operation deadline stops the loop in Do via its context. Bare context
// cancellation and anything unclassified are terminal so malformed
// requests are not hammered against the backend.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}

// Policy executes operations with exponential backoff. The zero value is
// not usable; construct with NewPolicy or fill all fields.
type Policy struct {
	// MaxAttempts bounds total attempts, including the first
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth
	MaxDelay time.Duration

	// JitterFraction randomizes each delay by ±fraction (0 disables
	// jitter, used by tests)
	JitterFraction float64

	// Retryable classifies errors; nil means IsRetryable
	Retryable func(error) bool
}

// NewPolicy returns a policy with the given attempt and delay bounds and
// the default ±25% jitter
func NewPolicy(maxAttempts int, initialDelay, maxDelay time.Duration) *Policy {
	return &Policy{
		MaxAttempts:    maxAttempts,
		InitialDelay:   initialDelay,
		MaxDelay:       maxDelay,
		JitterFraction: 0.25,
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts.
// Terminal errors abort immediately without consuming retries. The last
// error is returned when attempts are exhausted. Context cancellation is
// honored both inside fn (via ctx) and during backoff sleeps.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.Delay(attempt-1)); err != nil {
				return lastErr
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Delay computes the backoff after the given zero-based attempt:
// min(MaxDelay, InitialDelay * 2^attempt), jittered by ±JitterFraction.
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		spread := float64(d) * p.JitterFraction
		d += time.Duration((rand.Float64()*2 - 1) * spread)
		if d < 0 {
			d = 0
		}
	}
	return d
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
