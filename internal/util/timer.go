package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is default Sleeper using timer.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryTimer is capped exponential backoff timer for unbounded retry. It
// counts consecutive failures until Clear is called.
type RetryTimer struct {
	expBackoff *backoff.ExponentialBackOff
	maxWait    time.Duration
	sleep      Sleeper
	retryCount int
}

// NewRetryTimer is constructor of RetryTimer. Wait time starts from initial
// and never exceeds max.
func NewRetryTimer(initial, max time.Duration) *RetryTimer {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.RandomizationFactor = 0.2
	b.Reset()

	return &RetryTimer{
		expBackoff: b,
		maxWait:    max,
		sleep:      Sleep,
	}
}

// SetSleeper replaces Sleeper. It is mainly for testing.
func (x *RetryTimer) SetSleeper(sleep Sleeper) {
	x.sleep = sleep
}

// SetRandomizationFactor changes jitter of wait time. 0 means no jitter.
func (x *RetryTimer) SetRandomizationFactor(f float64) {
	x.expBackoff.RandomizationFactor = f
}

func (x *RetryTimer) calcWaitTime() time.Duration {
	wait := x.expBackoff.NextBackOff()
	if wait == backoff.Stop || wait > x.maxWait {
		wait = x.maxWait
	}
	x.retryCount++
	return wait
}

// Wait records one failure and sleeps backoff time. It returns wait time and
// error of Sleeper (ctx cancellation).
func (x *RetryTimer) Wait(ctx context.Context) (time.Duration, error) {
	wait := x.calcWaitTime()
	return wait, x.sleep(ctx, wait)
}

// RetryCount returns number of consecutive failures
func (x *RetryTimer) RetryCount() int {
	return x.retryCount
}

// Clear resets backoff and failure count after success
func (x *RetryTimer) Clear() {
	x.retryCount = 0
	x.expBackoff.Reset()
}
