package collector

import (
	"devlogd/internal/flowctrl"
	"devlogd/internal/stats"
	"devlogd/pkg/logrecord"
	"sync/atomic"
)

// Shared log store as seen by the collector
type Inserter interface {
	Insert(record logrecord.Record) (size int, err error)
	CountLog(sample stats.Sample)
}

type DomainValidator interface {
	IsAcceptable(logType logrecord.Type, domainID uint32) (ok bool)
}

type FlowController interface {
	Evaluate(logType logrecord.Type, domainID uint32) (decision flowctrl.Decision)
}

type Config struct {
	DebugMode   bool // disables domain gating and flow control
	FlowControl bool
	Statistics  bool
}

// Live values of the runtime switches
type Settings struct {
	DebugMode   bool `json:"debugMode"`
	FlowControl bool `json:"flowControl"`
	Statistics  bool `json:"statistics"`
}

type Collector struct {
	Namespace   []string
	store       Inserter
	validator   DomainValidator
	flow        FlowController
	debugMode   atomic.Bool
	flowControl atomic.Bool
	statistics  atomic.Bool
	Metrics     MetricStorage
}

type MetricStorage struct {
	Received    atomic.Uint64 // raw records handed to the collector
	Malformed   atomic.Uint64 // records that failed to parse
	Rejected    atomic.Uint64 // records from unacceptable domains
	Dropped     atomic.Uint64 // records dropped by flow control
	Inserted    atomic.Uint64 // records accepted by the store
	Notices     atomic.Uint64 // drop notices inserted
	StoreErrors atomic.Uint64 // records the store refused
	Kernel      atomic.Uint64 // trusted records from the kernel reader
	SumNs       atomic.Uint64 // sum of elapsed ns for all records
	MaxNs       atomic.Uint64 // max observed record duration
}
