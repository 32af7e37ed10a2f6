package transport

import (
	"context"
	"devlogd/internal/global"
	"devlogd/pkg/logrecord"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type received struct {
	raw  []byte
	cred *logrecord.Credentials
}

type fakeCollector struct {
	mu      sync.Mutex
	records []received
	err     error
}

func (collector *fakeCollector) OnRecordReceived(ctx context.Context, raw []byte, cred *logrecord.Credentials) (err error) {
	collector.mu.Lock()
	defer collector.mu.Unlock()
	collector.records = append(collector.records, received{raw: raw, cred: cred})
	err = collector.err
	return
}

func (collector *fakeCollector) count() (n int) {
	collector.mu.Lock()
	defer collector.mu.Unlock()
	n = len(collector.records)
	return
}

func newTestManager(t *testing.T, sink Collector) (manager *Manager, path string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "in.sock")
	manager, err := New([]string{global.NSTest}, Config{SocketPath: path, Readers: 2}, sink)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	return
}

func dial(t *testing.T, path string) (conn *net.UnixConn) {
	t.Helper()
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("failed to dial socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return
}

func waitForCount(t *testing.T, collector *fakeCollector, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for collector.count() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d records, got %d", want, collector.count())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDeliversRecordsWithCredentials(t *testing.T) {
	collector := &fakeCollector{}
	manager, path := newTestManager(t, collector)
	manager.Start(context.Background())
	defer manager.Stop()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("socket file missing: %v", err)
	}
	if info.Mode().Perm() != socketMode {
		t.Errorf("expected mode %v, got %v", socketMode, info.Mode().Perm())
	}

	payload, err := logrecord.Encode(logrecord.Record{
		Type:    logrecord.TypeCore,
		Level:   logrecord.LevelInfo,
		Pid:     1,
		Domain:  0xD000001,
		Tag:     "svc",
		Content: "hello",
	})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	client := dial(t, path)
	if _, err := client.Write(payload); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	waitForCount(t, collector, 1)

	got := collector.records[0]
	if string(got.raw) != string(payload) {
		t.Fatalf("payload altered in transit")
	}
	if got.cred == nil {
		t.Fatalf("expected sender credentials")
	}
	if got.cred.Pid != int32(os.Getpid()) || got.cred.Uid != uint32(os.Getuid()) {
		t.Fatalf("unexpected credentials: %+v", got.cred)
	}
}

func TestShortDatagramsStillDelivered(t *testing.T) {
	collector := &fakeCollector{}
	manager, path := newTestManager(t, collector)
	manager.Start(context.Background())
	defer manager.Stop()

	client := dial(t, path)
	client.Write([]byte{0x01, 0x02})
	waitForCount(t, collector, 1)

	if len(collector.records[0].raw) != 2 {
		t.Fatalf("expected the raw datagram untouched")
	}
}

func TestCollectorErrorsCounted(t *testing.T) {
	collector := &fakeCollector{err: errors.New("invalid type")}
	manager, path := newTestManager(t, collector)
	manager.Start(context.Background())

	client := dial(t, path)
	for i := 0; i < 3; i++ {
		client.Write([]byte("record"))
	}
	waitForCount(t, collector, 3)

	if err := manager.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if manager.Metrics.Refused.Load() != 3 || manager.Metrics.Datagrams.Load() != 3 {
		t.Fatalf("unexpected counters: refused %d, datagrams %d",
			manager.Metrics.Refused.Load(), manager.Metrics.Datagrams.Load())
	}
}

func TestStopRemovesSocket(t *testing.T) {
	manager, path := newTestManager(t, &fakeCollector{})
	manager.Start(context.Background())

	done := make(chan error)
	go func() { done <- manager.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected stop error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stop did not unblock readers")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected socket file removed, stat error: %v", err)
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to create stale file: %v", err)
	}

	conn, err := Listen(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn.Close()
}

func TestNewWithoutSocket(t *testing.T) {
	_, err := New([]string{global.NSTest}, Config{}, &fakeCollector{})
	if err == nil {
		t.Fatalf("expected error without socket path")
	}
}
