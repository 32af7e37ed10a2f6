// Helpers for waiting on values maintained by other goroutines
package atomics

import (
	"context"
	"time"
)

// Polls read until it reports 0 three consecutive times, with backoff.
// Gives up at timeout or when ctx ends.
func WaitUntilZero(ctx context.Context, read func() uint64, timeout time.Duration) (reachedZero bool, lastValue uint64) {
	const successfulStreakCount = 3

	backoff := 10 * time.Millisecond
	maxBackoff := 500 * time.Millisecond

	deadline := time.Now().Add(timeout)
	zeroStreak := 0

	for {
		lastValue = read()
		if lastValue == 0 {
			zeroStreak++
			if zeroStreak >= successfulStreakCount {
				reachedZero = true
				return
			}
		} else {
			zeroStreak = 0
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		sleep := min(backoff, remaining)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}

		// Back off only while the value holds at zero
		if lastValue == 0 && backoff < maxBackoff {
			backoff = min(backoff*2, maxBackoff)
		}
	}
}
