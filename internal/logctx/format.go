package logctx

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stringify full event
func (event Event) Format() (text string) {
	// Only print parts that are present
	var parts []string
	if !event.Timestamp.IsZero() {
		parts = append(parts, "["+padTimestamp(event.Timestamp)+"]")
	}
	if len(event.Tags) > 0 {
		parts = append(parts, "["+strings.Join(event.Tags, "/")+"]")
	}
	if event.Severity != "" {
		parts = append(parts, "["+event.Severity+"]")
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}

	// No newline, message creator determines newlines
	text = strings.Join(parts, " ")
	return
}

// Snapshot of queued events, oldest first, each terminated by a newline
func (logger *Logger) GetFormattedLogLines() (formatted []string) {
	logger.mutex.Lock()
	events := make([]Event, len(logger.queue))
	copy(events, logger.queue)
	logger.mutex.Unlock()

	// Zero timestamps sort last
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Timestamp, events[j].Timestamp
		if ti.IsZero() {
			return false
		}
		if tj.IsZero() {
			return true
		}
		return ti.Before(tj)
	})

	formatted = make([]string, 0, len(events))
	for _, event := range events {
		line := event.Format()
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		formatted = append(formatted, line)
	}
	return
}

// Ensures fixed length strings for timestamps
func padTimestamp(timestamp time.Time) (formatted string) {
	formatted = timestamp.Format(time.RFC3339Nano)

	whole, fraction, found := strings.Cut(formatted, ".")
	if !found {
		return
	}

	// Fraction is digits followed by the zone (Z, +hh:mm or -hh:mm)
	zoneStart := strings.IndexAny(fraction, "Z+-")
	if zoneStart < 0 {
		return
	}
	nanoseconds := fraction[:zoneStart]
	zone := fraction[zoneStart:]

	formatted = fmt.Sprintf("%s.%s%s", whole, nanoseconds+strings.Repeat("0", 9-len(nanoseconds)), zone)
	return
}
