package store

import (
	"time"

	"golang.org/x/sys/unix"
)

// Time since boot as kept by CLOCK_MONOTONIC
func monotonicNow() (elapsed time.Duration, err error) {
	var ts unix.Timespec
	err = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	if err != nil {
		return
	}
	elapsed = time.Duration(ts.Nano())
	return
}
