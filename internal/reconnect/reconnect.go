// Package reconnect holds the backoff schedule used when dialing an engine.
package reconnect

import (
	"context"
	"time"
)

// Schedule defines the backoff durations for successive reconnect attempts.
var Schedule = []time.Duration{
	time.Second, time.Second, time.Second,
	5 * time.Second, 5 * time.Second, 5 * time.Second,
	15 * time.Second, 15 * time.Second, 15 * time.Second,
}

// StableAfter is how long a connection must last before the attempt counter
// starts over.
var StableAfter = time.Minute

// Delay returns the backoff duration for the given attempt.
// Attempts beyond the length of the schedule default to 30 seconds.
func Delay(attempt int) time.Duration {
	if attempt < len(Schedule) {
		return Schedule[attempt]
	}
	return 30 * time.Second
}

// Run calls fn and, when it fails and enabled is true, calls it again after
// the scheduled delay until ctx is done. onRetry, when set, is told about each
// wait before it starts.
func Run(ctx context.Context, enabled bool, fn func(context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	attempt := 0
	for {
		started := time.Now()
		err := fn(ctx)
		if err == nil || !enabled {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) >= StableAfter {
			attempt = 0
		}
		delay := Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		attempt++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
