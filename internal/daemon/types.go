package daemon

import (
	"context"
	"devlogd/internal/collector"
	"devlogd/internal/flowctrl"
	"devlogd/internal/forward"
	"devlogd/internal/kmsg"
	"devlogd/internal/stats"
	"devlogd/internal/store"
	"devlogd/internal/transport"
	"net/http"
	"sync"
	"time"
)

type JSONConfig struct {
	DebugMode  bool   `json:"debugMode,omitempty"`
	DomainFile string `json:"domainFile,omitempty"`
	Socket     struct {
		Path          string `json:"path,omitempty"`
		Readers       int    `json:"readers,omitempty"`
		UseActivation bool   `json:"useActivation"`
	} `json:"socket"`
	Kmsg struct {
		Enabled       bool   `json:"enabled"`
		Device        string `json:"device,omitempty"`
		MaxFailures   int    `json:"maxFailures,omitempty"`
		RetryInterval string `json:"retryInterval,omitempty"`
		PollTimeout   string `json:"pollTimeout,omitempty"`
	} `json:"kmsg"`
	FlowControl struct {
		Enabled      bool   `json:"enabled"`
		DefaultQuota int    `json:"defaultQuota,omitempty"`
		Window       string `json:"window,omitempty"`
	} `json:"flowControl"`
	Statistics struct {
		Enabled  bool `json:"enabled"`
		TagStats bool `json:"tagStats,omitempty"`
	} `json:"statistics"`
	Buffer struct {
		SizePerType int `json:"sizePerType,omitempty"`
	} `json:"buffer"`
	Forward struct {
		BeatsAddress  string `json:"beatsAddress,omitempty"`
		BatchSize     int    `json:"batchSize,omitempty"`
		Compression   int    `json:"compression,omitempty"`
		Timeout       string `json:"timeout,omitempty"`
		QueueSize     int    `json:"queueSize,omitempty"`
		IncludeKernel bool   `json:"includeKernel,omitempty"`
	} `json:"forward"`
	Metrics struct {
		Interval          string `json:"collectionInterval,omitempty"`
		MaxAge            string `json:"maximumRetention,omitempty"`
		EnableQueryServer bool   `json:"enableHTTPQueryServer"`
		QueryServerPort   int    `json:"queryServerPort,omitempty"`
	} `json:"metrics"`
}

type Config struct {
	// Ingestion switches
	DebugMode   bool
	FlowControl bool
	Statistics  bool
	TagStats    bool

	// Domain policy
	DomainFile   string
	DefaultQuota int
	FlowWindow   time.Duration

	// Socket transport
	SocketPath    string
	Readers       int
	UseActivation bool

	// Kernel log reader
	KmsgEnabled       bool
	KmsgDevice        string
	KmsgMaxFailures   int
	KmsgRetryInterval time.Duration
	KmsgPollTimeout   time.Duration

	// Store
	BufferSizePerType int

	// Forwarding
	BeatsAddress       string
	ForwardBatchSize   int
	ForwardCompression int
	ForwardTimeout     time.Duration
	ForwardQueueSize   int
	ForwardKernel      bool

	// Metrics
	MetricQueryServerEnabled bool
	MetricQueryServerPort    int
	MetricCollectionInterval time.Duration
	MetricMaxAge             time.Duration
}

// Pipeline components, nil when disabled
type Components struct {
	Policy    *livePolicy
	Stats     *stats.Collector
	Store     *store.Store
	Flow      *flowctrl.Controller
	Collector *collector.Collector
	Transport *transport.Manager
	Kmsg      *kmsg.Reader
	Forwarder *forward.Forwarder
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	Comps            Components
	metricsCollector *Gatherer
	MetricServer     *http.Server
}
