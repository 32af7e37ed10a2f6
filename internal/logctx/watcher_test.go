package logctx

import (
	"bytes"
	"context"
	"devlogd/internal/global"
	"strings"
	"testing"
	"time"
)

func TestWatcherDrainsAndExits(t *testing.T) {
	done := make(chan struct{})
	ctx := New(context.Background(), global.NSTest, global.VerbosityDebug, done)
	logger := GetLogger(ctx)

	var output bytes.Buffer
	StartWatcher(logger, &output)

	// Wake with an empty queue must not write anything
	logger.Wake()

	const repeats = 11
	for i := 0; i < repeats; i++ {
		LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "duplicate-message\n")
	}
	LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "final-message\n")

	// Let the watcher drain before signalling done
	deadline := time.Now().Add(2 * time.Second)
	for logger.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	close(done)
	logger.Wake()
	logger.Wait()

	out := output.String()
	if strings.Count(out, "duplicate-message") < 1 {
		t.Fatalf("expected original message in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Suppressed") {
		t.Fatalf("expected suppression summary, got:\n%s", out)
	}
	if !strings.Contains(out, "final-message") {
		t.Fatalf("expected final message, got:\n%s", out)
	}
}

func TestDedupSuppress(t *testing.T) {
	now := time.Now()
	var output bytes.Buffer
	var dedup dedupState

	event := Event{Timestamp: now, Message: "same"}
	if dedup.suppress(event, now, &output) {
		t.Fatalf("first occurrence must be printed")
	}
	for i := 0; i < minRepeats-2; i++ {
		if !dedup.suppress(event, now, &output) {
			t.Fatalf("repeat %d should be suppressed", i)
		}
	}
	if output.Len() != 0 {
		t.Fatalf("summary written too early: %q", output.String())
	}
	dedup.suppress(event, now, &output)
	if !strings.Contains(output.String(), "Suppressed 10 repeated messages") {
		t.Fatalf("unexpected summary: %q", output.String())
	}

	stale := Event{Timestamp: now.Add(-2 * dedupWindow), Message: "same"}
	if dedup.suppress(stale, now, &output) {
		t.Fatalf("events outside the window must be printed")
	}
}
