package transport

import (
	"context"
	"devlogd/pkg/logrecord"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Receiver of every datagram read from the socket
type Collector interface {
	OnRecordReceived(ctx context.Context, raw []byte, cred *logrecord.Credentials) (err error)
}

type Config struct {
	SocketPath    string // bound when no socket was passed by the service manager
	Readers       int    // concurrent reader goroutines
	UseActivation bool   // prefer a socket passed by the service manager
}

type Manager struct {
	Namespace []string
	conn      *net.UnixConn
	path      string // removed on shutdown when we created it
	owned     bool
	readers   int
	sink      Collector

	mu     sync.Mutex // guards start/stop
	group  *errgroup.Group
	cancel context.CancelFunc

	Metrics MetricStorage
}

type MetricStorage struct {
	BusyNs     atomic.Uint64 // sum of ns spent handling datagrams
	Datagrams  atomic.Uint64 // datagrams handed to the collector
	Truncated  atomic.Uint64 // datagrams larger than the read buffer
	NoCreds    atomic.Uint64 // datagrams without sender credentials
	ReadErrors atomic.Uint64 // failed socket reads
	Refused    atomic.Uint64 // datagrams the collector returned an error for
	SumNs      atomic.Uint64 // sum of elapsed ns for all datagrams
	MaxNs      atomic.Uint64 // max observed datagram duration
}
