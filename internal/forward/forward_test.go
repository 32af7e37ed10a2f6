package forward

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/store"
	"devlogd/pkg/logrecord"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	server "github.com/elastic/go-lumber/server/v2"
)

func newTestStore(t *testing.T) (logStore *store.Store) {
	t.Helper()
	logStore, err := store.New([]string{global.NSTest}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	return
}

func insert(t *testing.T, logStore *store.Store, logType logrecord.Type, content string) {
	t.Helper()
	_, err := logStore.Insert(logrecord.Record{
		Type:    logType,
		Level:   logrecord.LevelInfo,
		TimeSec: 1700000000,
		Pid:     7,
		Domain:  0xD000001,
		Tag:     "svc",
		Content: content,
	})
	if err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
}

func TestNewWithoutAddress(t *testing.T) {
	forwarder, err := New([]string{global.NSTest}, Config{}, newTestStore(t))
	if err != nil || forwarder != nil {
		t.Fatalf("expected nil forwarder and no error, got %v %v", forwarder, err)
	}

	// Nil forwarder is safe to drive
	forwarder.Start(context.Background())
	forwarder.Shutdown(context.Background(), time.Millisecond)
}

func TestForwardsToBeatsServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv, err := server.NewWithListener(listener)
	if err != nil {
		t.Fatalf("failed to start beats server: %v", err)
	}
	defer srv.Close()

	logStore := newTestStore(t)
	forwarder, err := New([]string{global.NSTest}, Config{
		Address:       listener.Addr().String(),
		BatchSize:     2,
		Timeout:       time.Second,
		IncludeKernel: true,
	}, logStore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	forwarder.Start(ctx)

	insert(t, logStore, logrecord.TypeCore, "first")
	insert(t, logStore, logrecord.TypeApp, "second")
	insert(t, logStore, logrecord.TypeKmsg, "third")

	messages := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for len(messages) < 3 {
		select {
		case batch := <-srv.ReceiveChan():
			for _, event := range batch.Events {
				fields, ok := event.(map[string]interface{})
				if !ok {
					t.Fatalf("unexpected event type %T", event)
				}
				messages[fmt.Sprint(fields["message"])] = true
			}
			batch.ACK()
		case <-deadline:
			t.Fatalf("timed out, received %v", messages)
		}
	}

	forwarder.Shutdown(ctx, time.Second)

	for _, want := range []string{"first", "second", "third"} {
		if !messages[want] {
			t.Errorf("missing forwarded message %q", want)
		}
	}
	if forwarder.Metrics.Sent.Load() != 3 {
		t.Errorf("expected 3 acknowledged events, got %d", forwarder.Metrics.Sent.Load())
	}
}

type fakeClient struct {
	mu       sync.Mutex
	failures int
	events   []interface{}
	closed   int
}

func (client *fakeClient) Send(events []interface{}) (acked int, err error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.failures > 0 {
		client.failures--
		err = errors.New("connection reset")
		return
	}
	client.events = append(client.events, events...)
	acked = len(events)
	return
}

func (client *fakeClient) Close() (err error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.closed++
	return
}

func (client *fakeClient) count() (n int) {
	client.mu.Lock()
	defer client.mu.Unlock()
	n = len(client.events)
	return
}

func TestReconnectsAfterSendFailure(t *testing.T) {
	client := &fakeClient{failures: 1}
	dials := 0
	var dialMu sync.Mutex

	logStore := newTestStore(t)
	forwarder, err := New([]string{global.NSTest}, Config{
		Address: "beats.invalid:5044",
		Dial: func(address string, timeout time.Duration, compression int) (Client, error) {
			dialMu.Lock()
			defer dialMu.Unlock()
			dials++
			return client, nil
		},
	}, logStore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	forwarder.Start(ctx)
	insert(t, logStore, logrecord.TypeCore, "retry me")

	deadline := time.Now().Add(5 * time.Second)
	for client.count() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("event never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	forwarder.Shutdown(ctx, time.Second)

	if forwarder.Metrics.SendErrors.Load() != 1 || forwarder.Metrics.Reconnects.Load() != 1 {
		t.Fatalf("expected one failure and one reconnect, got %d/%d",
			forwarder.Metrics.SendErrors.Load(), forwarder.Metrics.Reconnects.Load())
	}
	dialMu.Lock()
	defer dialMu.Unlock()
	if dials != 2 {
		t.Fatalf("expected 2 dials, got %d", dials)
	}
}

func TestShutdownAbandonsUnreachable(t *testing.T) {
	logStore := newTestStore(t)
	forwarder, err := New([]string{global.NSTest}, Config{
		Address: "beats.invalid:5044",
		Dial: func(address string, timeout time.Duration, compression int) (Client, error) {
			return nil, errors.New("no route to host")
		},
	}, logStore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	forwarder.Start(ctx)
	insert(t, logStore, logrecord.TypeCore, "lost")

	deadline := time.Now().Add(2 * time.Second)
	for forwarder.Metrics.Queued.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("record never queued")
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		forwarder.Shutdown(ctx, 50*time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("shutdown hung on unreachable endpoint")
	}
	if forwarder.Metrics.Abandoned.Load() != 1 {
		t.Fatalf("expected 1 abandoned event, got %d", forwarder.Metrics.Abandoned.Load())
	}
}
