package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

type fakeDaemon struct {
	mu        sync.Mutex
	reloads   int
	shutdowns int
	reloadErr error
}

func (d *fakeDaemon) Reload(ctx context.Context) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	err = d.reloadErr
	return
}

func (d *fakeDaemon) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdowns++
}

type fakeSignal struct{}

func (fakeSignal) String() string { return "fake" }
func (fakeSignal) Signal()        {}

func TestHandleSignals(t *testing.T) {
	tests := []struct {
		name          string
		signals       []os.Signal
		reloadErr     error
		wantReloads   int
		wantShutdowns int
	}{
		{
			name:          "terminate",
			signals:       []os.Signal{syscall.SIGTERM},
			wantShutdowns: 1,
		},
		{
			name:          "interrupt",
			signals:       []os.Signal{syscall.SIGINT},
			wantShutdowns: 1,
		},
		{
			name:          "reload then quit",
			signals:       []os.Signal{syscall.SIGHUP, syscall.SIGHUP, syscall.SIGQUIT},
			wantReloads:   2,
			wantShutdowns: 1,
		},
		{
			name:          "failed reload keeps running",
			signals:       []os.Signal{syscall.SIGHUP, syscall.SIGTERM},
			reloadErr:     errors.New("bad policy file"),
			wantReloads:   1,
			wantShutdowns: 1,
		},
		{
			name:          "unknown signal type ignored",
			signals:       []os.Signal{fakeSignal{}, syscall.SIGTERM},
			wantShutdowns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NOTIFY_SOCKET", "")

			d := &fakeDaemon{reloadErr: tt.reloadErr}
			sigChan := make(chan os.Signal, len(tt.signals))
			for _, sig := range tt.signals {
				sigChan <- sig
			}

			done := make(chan struct{})
			go func() {
				handleSignals(context.Background(), d, sigChan)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("signal handler did not return")
			}

			if d.reloads != tt.wantReloads {
				t.Errorf("reloads=%d want=%d", d.reloads, tt.wantReloads)
			}
			if d.shutdowns != tt.wantShutdowns {
				t.Errorf("shutdowns=%d want=%d", d.shutdowns, tt.wantShutdowns)
			}
		})
	}
}

func TestHandleSignalsContextDone(t *testing.T) {
	d := &fakeDaemon{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handleSignals(ctx, d, make(chan os.Signal))

	if d.shutdowns != 0 {
		t.Fatalf("expected no shutdown on cancelled context, got %d", d.shutdowns)
	}
}
