// Reads log records from the local datagram socket and hands them to the collector
package transport

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Datagrams larger than this are truncated by the kernel
const readBufferSize = 65535

// Opens the socket (activated or bound) and prepares the reader pool
func New(namespace []string, cfg Config, sink Collector) (new *Manager, err error) {
	new = &Manager{
		Namespace: append(namespace, global.NSTransport),
		readers:   cfg.Readers,
		sink:      sink,
	}
	if new.readers <= 0 {
		new.readers = global.DefaultListenerCount
	}

	if cfg.UseActivation {
		new.conn, err = Activated()
		if err != nil {
			new = nil
			return
		}
	}
	if new.conn == nil {
		if cfg.SocketPath == "" {
			err = fmt.Errorf("no socket path configured and no socket was passed by the service manager")
			new = nil
			return
		}
		new.conn, err = Listen(cfg.SocketPath)
		if err != nil {
			new = nil
			return
		}
		new.path = cfg.SocketPath
		new.owned = true
	}
	return
}

// Local address of the socket
func (manager *Manager) Addr() (addr string) {
	addr = manager.conn.LocalAddr().String()
	return
}

// Launches the readers
func (manager *Manager) Start(ctx context.Context) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.group != nil {
		return
	}

	ctx, manager.cancel = context.WithCancel(ctx)
	manager.group, ctx = errgroup.WithContext(ctx)

	for id := 0; id < manager.readers; id++ {
		readerCtx := logctx.AppendCtxTag(ctx, global.NSListen)
		readerCtx = logctx.AppendCtxTag(readerCtx, strconv.Itoa(id))
		manager.group.Go(func() (err error) {
			manager.read(readerCtx)
			return
		})
	}

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"listening for log records on %s with %d readers\n", manager.Addr(), manager.readers)
}

// Stops the readers and releases the socket
func (manager *Manager) Stop() (err error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.cancel != nil {
		manager.cancel()
	}

	// Unblocks pending reads
	closeErr := manager.conn.Close()
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		err = fmt.Errorf("failed to close socket: %v", closeErr)
	}

	if manager.group != nil {
		manager.group.Wait()
		manager.group = nil
	}

	if manager.owned {
		removeErr := os.Remove(manager.path)
		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) && err == nil {
			err = fmt.Errorf("failed to remove socket file: %v", removeErr)
		}
		manager.owned = false
	}
	return
}

func (manager *Manager) read(ctx context.Context) {
	buffer := make([]byte, readBufferSize)
	oob := make([]byte, unix.CmsgSpace(unix.SizeofUcred))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		stop := func() (stop bool) {
			defer func() {
				// Record panics and continue listening
				if fatalError := recover(); fatalError != nil {
					stack := debug.Stack()
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
						"panic in transport reader thread: %v\n%s", fatalError, stack)
				}
			}()

			// Blocking until data or socket closed by Stop
			n, oobn, flags, _, err := manager.conn.ReadMsgUnix(buffer, oob)
			start := time.Now()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					stop = true
					return
				}
				manager.Metrics.ReadErrors.Add(1)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"failed reading data from socket: %v\n", err)
				return
			}
			defer func() { manager.Metrics.BusyNs.Add(uint64(time.Since(start))) }()

			if flags&unix.MSG_TRUNC != 0 {
				manager.Metrics.Truncated.Add(1)
				logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
					"discarding datagram larger than %d bytes\n", readBufferSize)
				return
			}

			cred, err := parseCredentials(oob[:oobn])
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
					"ignoring unreadable sender credentials: %v\n", err)
				cred = nil
			}
			if cred == nil {
				manager.Metrics.NoCreds.Add(1)
			}

			payload := append([]byte(nil), buffer[:n]...)

			err = manager.sink.OnRecordReceived(ctx, payload, cred)
			if err != nil {
				manager.Metrics.Refused.Add(1)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"collector refused record: %v\n", err)
			}
			manager.Metrics.Datagrams.Add(1)
			manager.recordDuration(start)
			return
		}()
		if stop {
			return
		}
	}
}

func (manager *Manager) recordDuration(start time.Time) {
	durNs := uint64(time.Since(start).Nanoseconds())
	manager.Metrics.SumNs.Add(durNs)
	for {
		oldMax := manager.Metrics.MaxNs.Load()
		if durNs <= oldMax || manager.Metrics.MaxNs.CompareAndSwap(oldMax, durNs) {
			return
		}
	}
}
