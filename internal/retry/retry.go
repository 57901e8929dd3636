// Package retry runs fallible operations with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

const minMultiplier = 1.5

// Policy controls how failed operations are retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter is the upper bound of the random delay added to each wait.
	// The effective bound never exceeds a quarter of the current delay.
	Jitter time.Duration
	// ShouldRetry decides whether an error is worth another attempt.
	// A nil ShouldRetry retries every error.
	ShouldRetry func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy retries network failures three times, starting at 500ms and
// doubling up to 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       100 * time.Millisecond,
		ShouldRetry:  IsNetworkError,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 500 * time.Millisecond
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < minMultiplier {
		p.Multiplier = minMultiplier
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Delays returns the wait that precedes each retry, without jitter.
func (p Policy) Delays() []time.Duration {
	p = p.normalized()
	delays := make([]time.Duration, 0, p.MaxRetries)
	current := p.InitialDelay
	for i := 0; i < p.MaxRetries; i++ {
		delays = append(delays, min(current, p.MaxDelay))
		current = time.Duration(float64(current) * p.Multiplier)
	}
	return delays
}

// Do calls op until it succeeds, the policy gives up, or ctx is done.
// The last error is returned unchanged when retries are exhausted or
// ShouldRetry rejects it.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()
	current := p.InitialDelay

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= p.MaxRetries {
			return zero, err
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			return zero, err
		}

		delay := min(current+jitter(p.Jitter, current), p.MaxDelay)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if !sleepCtx(ctx, delay) {
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		current = time.Duration(float64(current) * p.Multiplier)
	}
}

// WithTimeout runs op and gives up after d. The operation keeps its own
// context which is canceled on expiry; its late result is discarded.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		return zero, &TimeoutError{After: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func jitter(limit, current time.Duration) time.Duration {
	limit = min(limit, current/4)
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit) + 1))
}

// sleepCtx blocks for d or until ctx is done.
// Returns true if the sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
