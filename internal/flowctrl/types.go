package flowctrl

import (
	"sync"
	"sync/atomic"
	"time"
)

type Action int

const (
	Accept             Action = iota // record within quota
	Drop                             // quota exceeded for the current window
	AcceptWithRollover               // new window opened after drops, Dropped holds the prior count
)

// Outcome of evaluating one record
type Decision struct {
	Action  Action
	Dropped uint32 // records dropped in the window that just closed
}

type Config struct {
	Window       time.Duration // length of one counting window
	DefaultQuota int           // records per window, 0 is unlimited

	// Optional per-domain ceiling override
	QuotaFunc func(domainID uint32) (quota int, ok bool)
	// Optional clock
	Now func() time.Time
}

// Rolling state for a single domain
type window struct {
	start   time.Time
	count   int
	dropped uint32
}

type shard struct {
	mu      sync.Mutex
	windows map[uint32]*window
}

type Controller struct {
	Namespace []string
	window    time.Duration
	quota     int
	quotaFunc func(domainID uint32) (quota int, ok bool)
	now       func() time.Time
	shards    [shardCount]shard
	Metrics   MetricStorage
}

// Exported view of a domain window
type WindowState struct {
	Domain  uint32    `json:"domain"`
	Start   time.Time `json:"windowStart"`
	Count   int       `json:"count"`
	Dropped uint32    `json:"dropped"`
	Quota   int       `json:"quota"`
}

type MetricStorage struct {
	Accepted  atomic.Uint64 // records let through, including rollover records
	Dropped   atomic.Uint64 // records over quota
	Rollovers atomic.Uint64 // windows closed with at least one drop
	Exempt    atomic.Uint64 // application records skipped by flow control
}
