package stats

import (
	"devlogd/pkg/logrecord"
	"sync"
	"sync/atomic"
	"time"
)

const (
	levelCount       = int(logrecord.LevelFatal-logrecord.LevelDebug) + 1
	maxTagsPerDomain = 256
	overflowTag      = "<other>"
)

// One observation of an inbound record
type Sample struct {
	Level    logrecord.Level
	Type     logrecord.Type
	Len      int // tag and content bytes without header or terminators
	Dropped  bool
	Domain   uint32
	Pid      uint32
	TimeSec  uint32
	TimeNsec uint32
	MonoSec  uint32
	Tag      string
}

// Line, byte and drop totals
type Counter struct {
	Lines   uint64 `json:"lines"`
	Bytes   uint64 `json:"bytes"`
	Dropped uint64 `json:"dropped"`
}

type domainStats struct {
	Counter
	levels [levelCount]Counter
	tags   map[string]*Counter
}

type pidStats struct {
	Counter
	logType logrecord.Type
}

type Collector struct {
	Namespace []string
	mu        sync.Mutex
	tagStats  bool
	total     Counter
	byType    [logrecord.TypeMax]Counter
	byLevel   [logrecord.TypeMax][levelCount]Counter
	domains   map[uint32]*domainStats
	pids      map[uint32]*pidStats
	since     time.Time // last reset
	firstLog  time.Time // earliest record timestamp observed
	lastLog   time.Time // latest record timestamp observed
	Metrics   MetricStorage
}

type MetricStorage struct {
	Lines   atomic.Uint64
	Bytes   atomic.Uint64
	Dropped atomic.Uint64
}

// Point-in-time copy of all statistics
type Snapshot struct {
	Since    time.Time     `json:"since"`
	FirstLog time.Time     `json:"firstLog"`
	LastLog  time.Time     `json:"lastLog"`
	Total    Counter       `json:"total"`
	Types    []TypeStats   `json:"types"`
	Domains  []DomainStats `json:"domains"`
	Pids     []PidStats    `json:"pids"`
}

type TypeStats struct {
	Type   string             `json:"type"`
	Total  Counter            `json:"total"`
	Levels map[string]Counter `json:"levels"`
}

type DomainStats struct {
	Domain uint32             `json:"domain"`
	Total  Counter            `json:"total"`
	Levels map[string]Counter `json:"levels"`
	Tags   map[string]Counter `json:"tags,omitempty"`
}

type PidStats struct {
	Pid   uint32  `json:"pid"`
	Type  string  `json:"type"`
	Total Counter `json:"total"`
}
