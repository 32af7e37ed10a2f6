// Background worker pulling kernel messages into the trusted storage path
package kmsg

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"errors"
	"runtime/debug"
	"time"
)

// Chunk size for a single read, /dev/kmsg returns one record per read
const readBufferSize = 8192

// Creates a stopped kernel reader feeding parsed records from source into sink
func New(namespace []string, cfg Config, source Source, sink Inserter) (new *Reader, err error) {
	bootTime := cfg.BootTime
	if bootTime.IsZero() {
		bootTime, err = BootTime()
		if err != nil {
			return
		}
	}

	new = &Reader{
		Namespace:     append(namespace, global.NSKmsg),
		source:        source,
		sink:          sink,
		parser:        NewParser(bootTime),
		maxFailures:   cfg.MaxFailures,
		retryInterval: cfg.RetryInterval,
		state:         NonExistent,
	}
	if new.maxFailures <= 0 {
		new.maxFailures = global.DefaultKmsgMaxFailure
	}
	if new.retryInterval <= 0 {
		new.retryInterval = global.DefaultKmsgRetryInterval
	}
	return
}

// Current lifecycle state. A worker that gives up on its own (open failure,
// too many read failures) leaves the reader Stopped, so Start can run it again.
func (reader *Reader) State() (state State) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	state = reader.state
	return
}

// Spawns the worker. No-op when already started.
func (reader *Reader) Start(ctx context.Context) {
	reader.mu.Lock()
	defer reader.mu.Unlock()

	if reader.state == Started {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "kernel reader already started\n")
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	reader.ctx = ctx
	reader.cancel = cancel
	reader.done = make(chan struct{})
	reader.stopped.Store(false)
	reader.state = Started

	go reader.work(workerCtx, reader.done)

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "kernel reader started\n")
}

// Asks the worker to exit and waits for it.
// No-op when never started or already stopped.
func (reader *Reader) Stop() {
	reader.mu.Lock()
	defer reader.mu.Unlock()

	if reader.state != Started {
		logctx.LogEvent(reader.logContext(), global.VerbosityProgress, global.InfoLog,
			"kernel reader not running, nothing to stop\n")
		return
	}

	reader.state = Stopped
	reader.stopped.Store(true)
	reader.cancel()
	<-reader.done

	logctx.LogEvent(reader.ctx, global.VerbosityProgress, global.InfoLog, "kernel reader stopped\n")
}

// Context of the last Start, for logging outside the worker
func (reader *Reader) logContext() (ctx context.Context) {
	ctx = reader.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return
}

// Releases the source handle. Callers stop the worker first.
func (reader *Reader) Close() (err error) {
	err = reader.source.Close()
	return
}

// Marks the run owning done as Stopped when its worker ended without Stop.
// Runs after done is closed so a concurrent Stop never waits on this lock.
func (reader *Reader) exited(done chan struct{}) {
	reader.mu.Lock()
	defer reader.mu.Unlock()

	if reader.done != done || reader.state != Started {
		return
	}
	reader.state = Stopped
	reader.stopped.Store(true)
	reader.cancel()
	logctx.LogEvent(reader.logContext(), global.VerbosityProgress, global.InfoLog, "kernel reader worker exited\n")
}

func (reader *Reader) work(ctx context.Context, done chan struct{}) {
	defer reader.exited(done)
	defer close(done)
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in kernel reader worker thread: %v\n%s", fatalError, stack)
		}
	}()

	err := reader.source.Open()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"failed to open kernel message source: %v\n", err)
		return
	}

	buf := make([]byte, readBufferSize)
	var failures int

	for !reader.stopped.Load() && ctx.Err() == nil {
		n, err := reader.source.Read(buf)
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				reader.Metrics.WouldBlock.Add(1)
				continue
			}
			if errors.Is(err, ErrNoData) {
				continue
			}

			failures++
			reader.Metrics.Failures.Add(1)
			if failures > reader.maxFailures {
				reader.Metrics.Aborts.Add(1)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"kernel reader giving up after %d consecutive failures: %v\n", failures, err)
				return
			}
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"failed to read kernel messages (attempt %d/%d): %v\n", failures, reader.maxFailures, err)

			// Backoff ends early on Stop
			timer := time.NewTimer(reader.retryInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		failures = 0
		reader.Metrics.Reads.Add(1)

		records, malformed := reader.parser.Parse(buf[:n])
		if malformed > 0 {
			reader.Metrics.Malformed.Add(uint64(malformed))
			logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
				"skipped %d unparsable kernel message line(s)\n", malformed)
		}
		reader.Metrics.Parsed.Add(uint64(len(records)))

		for _, record := range records {
			err = reader.sink.InsertTrusted(ctx, record)
			if err != nil {
				reader.Metrics.InsertErrors.Add(1)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"failed to store kernel message: %v\n", err)
				continue
			}
			reader.Metrics.Inserted.Add(1)
		}
	}
}
