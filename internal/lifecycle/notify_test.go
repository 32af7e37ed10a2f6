package lifecycle

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func listenNotifySocket(t *testing.T) (conn *net.UnixConn) {
	t.Helper()

	dir, err := os.MkdirTemp("", "sdn")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "notify.sock")
	conn, err = net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	t.Setenv("NOTIFY_SOCKET", path)
	return
}

func readNotification(t *testing.T, conn *net.UnixConn) (msg string) {
	t.Helper()

	buf := make([]byte, 512)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed to read notification: %v", err)
	}
	msg = string(buf[:n])
	return
}

func TestNotifyMessages(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		send       func(context.Context) error
		wantPrefix string
	}{
		{"ready", NotifyReady, "READY=1"},
		{"stopping", NotifyStopping, "STOPPING=1"},
		{"reload", NotifyReload, "RELOADING=1\nMONOTONIC_USEC="},
		{"status", func(ctx context.Context) error { return NotifyStatus(ctx, "collecting") }, "STATUS=collecting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := listenNotifySocket(t)

			if err := tt.send(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			msg := readNotification(t, conn)
			if !strings.HasPrefix(msg, tt.wantPrefix) {
				t.Fatalf("got %q, want prefix %q", msg, tt.wantPrefix)
			}
		})
	}
}

func TestNotifyWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	if err := NotifyReady(context.Background()); err != nil {
		t.Fatalf("expected nil without NOTIFY_SOCKET, got %v", err)
	}
}

func TestWatchdogDisabledReturns(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")

	done := make(chan struct{})
	go func() {
		Watchdog(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog should return when not enabled")
	}
}

func TestWatchdogPings(t *testing.T) {
	conn := listenNotifySocket(t)
	t.Setenv("WATCHDOG_USEC", "20000")
	t.Setenv("WATCHDOG_PID", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watchdog(ctx)
		close(done)
	}()

	msg := readNotification(t, conn)
	if msg != "WATCHDOG=1" {
		t.Fatalf("got %q, want WATCHDOG=1", msg)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop after cancel")
	}
}
