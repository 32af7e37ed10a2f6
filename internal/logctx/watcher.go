package logctx

import (
	"devlogd/internal/global"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	dedupWindow      = 5 * time.Second
	minRepeats       = 10
	suppressCooldown = 1 * time.Minute
)

// Starts a go routine that reads events and writes formatted output to io.Writer.
// Stops when logger.Done is closed and the queue is empty.
func StartWatcher(logger *Logger, output io.Writer) {
	logger.wg.Add(1)

	go func() {
		defer logger.wg.Done()

		var dedup dedupState
		for {
			event, ok := logger.next()
			if !ok {
				return
			}

			if dedup.suppress(event, time.Now(), output) {
				continue
			}
			fmt.Fprintf(output, "%s", event.Format())
		}
	}()
}

// Blocks until an event is queued; returns false once done and drained
func (logger *Logger) next() (event Event, ok bool) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()

	for len(logger.queue) == 0 {
		select {
		case <-logger.Done:
			return
		default:
			logger.cond.Wait()
		}
	}

	event = logger.queue[0]
	logger.queue = logger.queue[1:]
	ok = true
	return
}

// Reports whether event repeats the previous message and should not be printed.
// A summary line is written at most once per cooldown for long repeat runs.
func (dedup *dedupState) suppress(event Event, now time.Time, output io.Writer) (skip bool) {
	if event.Message == "" || event.Message != dedup.lastMsg || now.Sub(event.Timestamp) > dedupWindow {
		dedup.lastMsg = event.Message
		dedup.repeatCount = 1
		return
	}

	dedup.repeatCount++
	if dedup.repeatCount >= minRepeats && now.Sub(dedup.lastSuppressTime) >= suppressCooldown {
		fmt.Fprintf(output,
			"[%s] [%s] [%s] Suppressed %d repeated messages: %s\n",
			padTimestamp(event.Timestamp),
			strings.Join(event.Tags, "/"),
			global.InfoLog,
			dedup.repeatCount,
			dedup.lastMsg)

		dedup.lastSuppressTime = now
		dedup.repeatCount = 0
	}
	skip = true
	return
}
