package forward

import (
	"context"
	"devlogd/internal/queue/mpmc"
	"devlogd/internal/store"
	"devlogd/pkg/logrecord"
	"sync"
	"sync/atomic"
	"time"
)

// Beats connection as used by the sender
type Client interface {
	Send(events []interface{}) (acked int, err error)
	Close() (err error)
}

// Opens a client to address
type DialFunc func(address string, timeout time.Duration, compression int) (client Client, err error)

type Config struct {
	Address       string        // host:port of the Beats/Logstash listener
	BatchSize     int           // events per send
	Compression   int           // 0 disables compression
	Timeout       time.Duration // dial and acknowledgement timeout
	QueueSize     int           // upper bound for queued records
	IncludeKernel bool          // also forward kernel records
	Dial          DialFunc      // optional, defaults to a lumberjack sync client
}

type Forwarder struct {
	Namespace   []string
	address     string
	batchSize   int
	compression int
	timeout     time.Duration
	dial        DialFunc
	hostname    string

	readers []*store.Reader
	wake    chan struct{}
	queue   *mpmc.Queue[logrecord.Record]
	client  Client

	cancelPump context.CancelFunc
	cancelSend context.CancelFunc
	pumpWg     sync.WaitGroup
	sendWg     sync.WaitGroup

	Metrics MetricStorage
}

type MetricStorage struct {
	Queued     atomic.Uint64 // records moved from the store into the queue
	Sent       atomic.Uint64 // events acknowledged by the remote
	Batches    atomic.Uint64 // successful sends
	SendErrors atomic.Uint64 // failed sends
	Reconnects atomic.Uint64 // dial attempts after the first
	Abandoned  atomic.Uint64 // events left unsent at shutdown
}
