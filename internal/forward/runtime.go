// Ships stored records to a Beats/Logstash endpoint
package forward

import (
	"context"
	"devlogd/internal/atomics"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"devlogd/pkg/logrecord"
	"runtime/debug"
	"time"
)

const maxBackoff = 5 * time.Second

// Starts the store pump and the sender
func (forwarder *Forwarder) Start(ctx context.Context) {
	if forwarder == nil {
		return
	}

	var pumpCtx, sendCtx context.Context
	pumpCtx, forwarder.cancelPump = context.WithCancel(ctx)
	sendCtx, forwarder.cancelSend = context.WithCancel(ctx)

	forwarder.pumpWg.Add(1)
	go func() {
		defer forwarder.pumpWg.Done()
		forwarder.pump(pumpCtx)
	}()

	forwarder.sendWg.Add(1)
	go func() {
		defer forwarder.sendWg.Done()
		forwarder.send(sendCtx)
	}()

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"forwarding records to %s\n", forwarder.address)
}

// Stops reading the store, gives the sender until timeout to empty the queue, then stops it
func (forwarder *Forwarder) Shutdown(ctx context.Context, timeout time.Duration) {
	if forwarder == nil {
		return
	}

	if forwarder.cancelPump != nil {
		forwarder.cancelPump()
		forwarder.pumpWg.Wait()
	}

	queueDepth := func() uint64 { return forwarder.queue.Metrics.Depth.Load() }
	drained, left := atomics.WaitUntilZero(ctx, queueDepth, timeout)
	if !drained {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"forward queue not empty at shutdown, %d records left\n", left)
	}

	if forwarder.cancelSend != nil {
		forwarder.cancelSend()
		forwarder.sendWg.Wait()
	}
	forwarder.Metrics.Abandoned.Add(queueDepth())

	for _, reader := range forwarder.readers {
		reader.Close()
	}
	if forwarder.client != nil {
		err := forwarder.client.Close()
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"failed to close beats connection: %v\n", err)
		}
		forwarder.client = nil
	}
}

// Moves new store records into the queue whenever the store signals an insert
func (forwarder *Forwarder) pump(ctx context.Context) {
	for {
		if !forwarder.drainStore(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-forwarder.wake:
		}
	}
}

func (forwarder *Forwarder) drainStore(ctx context.Context) (alive bool) {
	for _, reader := range forwarder.readers {
		for {
			record, ok := reader.Next()
			if !ok {
				break
			}
			if !forwarder.queue.PushBlocking(ctx, record, record.Length()) {
				return
			}
			forwarder.Metrics.Queued.Add(1)
		}
	}
	alive = true
	return
}

func (forwarder *Forwarder) send(ctx context.Context) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in forward sender thread: %v\n%s", fatalError, stack)
		}
	}()

	batch := make([]interface{}, 0, forwarder.batchSize)
	for {
		record, ok := forwarder.queue.Pop(ctx)
		if !ok {
			return
		}
		batch = append(batch, forwarder.event(record))

		// Fill the batch with whatever is already waiting
		for len(batch) < forwarder.batchSize && forwarder.queue.Len() > 0 {
			record, ok = forwarder.queue.Pop(ctx)
			if !ok {
				break
			}
			batch = append(batch, forwarder.event(record))
		}

		forwarder.deliver(ctx, batch)
		batch = batch[:0]
	}
}

// Sends batch, reconnecting with backoff until acknowledged or ctx ends
func (forwarder *Forwarder) deliver(ctx context.Context, batch []interface{}) {
	backoff := 100 * time.Millisecond
	dialed := false

	for len(batch) > 0 {
		if forwarder.client == nil {
			if dialed {
				forwarder.Metrics.Reconnects.Add(1)
			}
			dialed = true

			client, err := forwarder.dial(forwarder.address, forwarder.timeout, forwarder.compression)
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"failed to connect to %s: %v\n", forwarder.address, err)
				if !forwarder.wait(ctx, &backoff) {
					forwarder.Metrics.Abandoned.Add(uint64(len(batch)))
					return
				}
				continue
			}
			forwarder.client = client
		}

		acked, err := forwarder.client.Send(batch)
		if acked > 0 {
			forwarder.Metrics.Sent.Add(uint64(acked))
			batch = batch[min(acked, len(batch)):]
		}
		if err == nil {
			forwarder.Metrics.Batches.Add(1)
			if acked == 0 {
				// Remote accepted nothing without failing, do not spin
				forwarder.Metrics.Abandoned.Add(uint64(len(batch)))
				return
			}
			continue
		}

		forwarder.Metrics.SendErrors.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"failed to send %d events to %s: %v\n", len(batch), forwarder.address, err)
		forwarder.client.Close()
		forwarder.client = nil

		if !forwarder.wait(ctx, &backoff) {
			forwarder.Metrics.Abandoned.Add(uint64(len(batch)))
			return
		}
	}
}

// Sleeps for the current backoff and doubles it. False when ctx ended.
func (forwarder *Forwarder) wait(ctx context.Context, backoff *time.Duration) (ok bool) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(*backoff):
	}
	*backoff = min(*backoff*2, maxBackoff)
	ok = true
	return
}

// Beats event for one record
func (forwarder *Forwarder) event(record logrecord.Record) (fields map[string]interface{}) {
	timestamp := time.Unix(int64(record.TimeSec), int64(record.TimeNsec)).UTC()

	fields = map[string]interface{}{
		// Minimum required fields
		"@timestamp": timestamp,
		"message":    record.Content,

		"host": map[string]interface{}{
			"name":     forwarder.hostname,
			"hostname": forwarder.hostname,
		},
		"agent": map[string]interface{}{
			"program": global.ProgBaseName,
			"version": global.ProgVersion,
			"type":    "filebeat",
		},
		"process": map[string]interface{}{
			"pid": record.Pid,
			"thread": map[string]interface{}{
				"id": record.Tid,
			},
		},
		"log": map[string]interface{}{
			"level":  record.Level.String(),
			"logger": record.Tag,
			"type":   record.Type.String(),
			"domain": record.Domain,
			"uptime": record.MonoSec,
		},
	}
	return
}
