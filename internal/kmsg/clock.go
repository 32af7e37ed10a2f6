package kmsg

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Wall clock time at which the monotonic clock read zero
func BootTime() (boot time.Time, err error) {
	var realtime, monotonic unix.Timespec

	err = unix.ClockGettime(unix.CLOCK_REALTIME, &realtime)
	if err != nil {
		err = fmt.Errorf("failed to read realtime clock: %v", err)
		return
	}
	err = unix.ClockGettime(unix.CLOCK_MONOTONIC, &monotonic)
	if err != nil {
		err = fmt.Errorf("failed to read monotonic clock: %v", err)
		return
	}

	boot = time.Unix(realtime.Unix()).Add(-time.Duration(monotonic.Nano()))
	return
}
