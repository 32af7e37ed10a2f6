package forward

import (
	"devlogd/internal/global"
	"devlogd/internal/queue/mpmc"
	"devlogd/internal/store"
	"devlogd/pkg/logrecord"
	"fmt"
	"os"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

const (
	defaultBatchSize = 64
	// Rough in-queue footprint of one record
	recordEstimate = 256
)

// Creates the forwarder. Returns nil nil if no address.
func New(namespace []string, cfg Config, logStore *store.Store) (new *Forwarder, err error) {
	if cfg.Address == "" {
		return
	}

	forwarder := &Forwarder{
		Namespace:   append(namespace, global.NSForward),
		address:     cfg.Address,
		batchSize:   cfg.BatchSize,
		compression: cfg.Compression,
		timeout:     cfg.Timeout,
		dial:        cfg.Dial,
		wake:        make(chan struct{}, 1),
	}
	if forwarder.batchSize <= 0 {
		forwarder.batchSize = defaultBatchSize
	}
	if forwarder.timeout <= 0 {
		forwarder.timeout = global.ForwardDialTimeout
	}
	if forwarder.dial == nil {
		forwarder.dial = dialLumberjack
	}

	forwarder.hostname, err = os.Hostname()
	if err != nil {
		forwarder.hostname = "-"
		err = nil
	}

	maxQueue := cfg.QueueSize
	if maxQueue <= 0 {
		maxQueue = global.DefaultMaxQueueSize
	}
	capacity := mpmc.CapacityFor(recordEstimate, global.DefaultMinQueueSize, maxQueue)
	forwarder.queue, err = mpmc.New[logrecord.Record](forwarder.Namespace, capacity)
	if err != nil {
		err = fmt.Errorf("failed to create forward queue: %v", err)
		return
	}

	forwarder.readers = append(forwarder.readers, logStore.NewReader(false, false, forwarder.notify))
	if cfg.IncludeKernel {
		forwarder.readers = append(forwarder.readers, logStore.NewReader(true, false, forwarder.notify))
	}

	new = forwarder
	return
}

func dialLumberjack(address string, timeout time.Duration, compression int) (client Client, err error) {
	ljClient, err := lumberjack.SyncDial(address,
		lumberjack.CompressionLevel(compression),
		lumberjack.Timeout(timeout),
	)
	if err != nil {
		err = fmt.Errorf("failed connection to beats server: %w", err)
		return
	}
	client = ljClient
	return
}

// Store insert hook, must not block
func (forwarder *Forwarder) notify() {
	select {
	case forwarder.wake <- struct{}{}:
	default:
	}
}
