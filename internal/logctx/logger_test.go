package logctx

import (
	"context"
	"devlogd/internal/global"
	"strings"
	"testing"
	"time"
)

func TestLogEvent(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	ctx := New(context.Background(), global.NSTest, global.VerbosityProgress, done)
	logger := GetLogger(ctx)
	if logger == nil {
		t.Fatalf("expected logger creation, got nil logger")
	}

	tests := []struct {
		name          string
		logLevel      int
		eventLevel    int
		severity      string
		message       string
		vars          []any
		expectEvents  int
		expectMessage string
	}{
		{
			name:          "event level below print level is logged",
			logLevel:      global.VerbosityProgress,
			eventLevel:    global.VerbosityStandard,
			severity:      global.InfoLog,
			message:       "record accepted",
			expectEvents:  1,
			expectMessage: "record accepted",
		},
		{
			name:         "event level above print level is dropped",
			logLevel:     global.VerbosityStandard,
			eventLevel:   global.VerbosityData,
			severity:     global.InfoLog,
			message:      "should not appear",
			expectEvents: 0,
		},
		{
			name:          "errors bypass level filtering",
			logLevel:      global.VerbosityNone,
			eventLevel:    global.VerbosityDebug,
			severity:      global.ErrorLog,
			message:       "store rejected record",
			expectEvents:  1,
			expectMessage: "store rejected record",
		},
		{
			name:          "formatted message with vars",
			logLevel:      global.VerbosityData,
			eventLevel:    global.VerbosityProgress,
			severity:      global.WarnLog,
			message:       "domain 0x%X rejected",
			vars:          []any{0xD002B00},
			expectEvents:  1,
			expectMessage: "domain 0xD002B00 rejected",
		},
		{
			name:          "format verb without vars is kept literal",
			logLevel:      global.VerbosityData,
			eventLevel:    global.VerbosityProgress,
			severity:      global.InfoLog,
			message:       "100% of quota used",
			expectEvents:  1,
			expectMessage: "100% of quota used",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger.mutex.Lock()
			logger.queue = []Event{}
			logger.mutex.Unlock()

			SetLogLevel(ctx, tt.logLevel)
			LogEvent(ctx, tt.eventLevel, tt.severity, tt.message, tt.vars...)

			if got := logger.Pending(); got != tt.expectEvents {
				t.Fatalf("expected %d events, got %d", tt.expectEvents, got)
			}
			if tt.expectEvents == 0 {
				return
			}

			logger.mutex.Lock()
			ev := logger.queue[0]
			logger.mutex.Unlock()

			if ev.Severity != tt.severity {
				t.Fatalf("severity mismatch: got %q want %q", ev.Severity, tt.severity)
			}
			if ev.Message != tt.expectMessage {
				t.Fatalf("message mismatch: got %q want %q", ev.Message, tt.expectMessage)
			}
			if time.Since(ev.Timestamp) > time.Second {
				t.Fatalf("event timestamp too old: %v", ev.Timestamp)
			}
		})
	}
}

func TestLogEventWithoutLogger(t *testing.T) {
	// Must not panic
	LogEvent(context.Background(), global.VerbosityStandard, global.ErrorLog, "nobody listening %d", 1)
}

func TestGetFormattedLogLinesOrdering(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	ctx := New(context.Background(), global.NSTest, global.VerbosityDebug, done)
	logger := GetLogger(ctx)

	base := time.Now()
	logger.mutex.Lock()
	logger.queue = []Event{
		{Timestamp: base.Add(3 * time.Second), Message: "third"},
		{Message: "zero"},
		{Timestamp: base.Add(1 * time.Second), Message: "first"},
		{Timestamp: base.Add(2 * time.Second), Message: "second"},
	}
	logger.mutex.Unlock()

	lines := logger.GetFormattedLogLines()
	expectedOrder := []string{"first", "second", "third", "zero"}
	if len(lines) != len(expectedOrder) {
		t.Fatalf("expected %d log lines, got %d", len(expectedOrder), len(lines))
	}
	for i, want := range expectedOrder {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d ordering mismatch: got %q, want %q", i, lines[i], want)
		}
		if !strings.HasSuffix(lines[i], "\n") {
			t.Fatalf("line %d missing trailing newline: %q", i, lines[i])
		}
	}
}
