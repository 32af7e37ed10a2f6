package kmsg

import (
	"context"
	"devlogd/pkg/logrecord"
	"sync"
	"sync/atomic"
	"time"
)

type State int

const (
	NonExistent State = iota // never started
	Started                  // worker running or requested to run
	Stopped                  // worker asked to exit and joined
)

func (state State) String() (name string) {
	switch state {
	case NonExistent:
		name = "non-existent"
	case Started:
		name = "started"
	case Stopped:
		name = "stopped"
	default:
		name = "unknown"
	}
	return
}

// Kernel message handle
type Source interface {
	Open() (err error)
	Read(buf []byte) (n int, err error)
	Close() (err error)
}

// Storage path for trusted records
type Inserter interface {
	InsertTrusted(ctx context.Context, record logrecord.Record) (err error)
}

type Config struct {
	MaxFailures   int           // consecutive read failures before the worker gives up
	RetryInterval time.Duration // pause after a failed read
	BootTime      time.Time     // wall clock at monotonic zero, zero value reads the system clocks
}

type Reader struct {
	Namespace     []string
	source        Source
	sink          Inserter
	parser        *Parser
	maxFailures   int
	retryInterval time.Duration

	mu      sync.Mutex // guards state transitions only
	state   State
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	ctx     context.Context

	Metrics MetricStorage
}

type MetricStorage struct {
	Reads        atomic.Uint64 // successful chunk reads
	WouldBlock   atomic.Uint64 // transient retries
	Failures     atomic.Uint64 // failed reads
	Parsed       atomic.Uint64 // complete records produced by the parser
	Malformed    atomic.Uint64 // lines the parser could not use
	Inserted     atomic.Uint64 // records accepted by the storage path
	InsertErrors atomic.Uint64 // records refused by the storage path
	Aborts       atomic.Uint64 // worker exits due to repeated failures
}
