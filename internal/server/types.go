package server

import (
	"context"
	"devlogd/internal/collector"
	"devlogd/internal/flowctrl"
	"devlogd/internal/metrics"
	"devlogd/internal/stats"
	"devlogd/pkg/logrecord"
	"time"
)

type httpLogWriter struct {
	ctx context.Context
}

type Jerror struct {
	Msg string `json:"error"`
}

type DataSearcher func(name string, namespacePrefix []string, start, end time.Time) []metrics.Metric
type Discoverer func(name, description string, namespacePrefix []string, unit string, metricType metrics.MetricType) []metrics.Metric
type AggSearcher func(aggType, name string, namespacePrefix []string, start, end time.Time) (metrics.Metric, error)

type StatsSource interface {
	Snapshot() (snap stats.Snapshot)
	Reset()
}

type FlowSource interface {
	Snapshot() (windows []flowctrl.WindowState)
}

// Runtime switches of the collector
type SettingsControl interface {
	Settings() (settings collector.Settings)
	SetDebugMode(enabled bool)
	SetFlowControl(enabled bool)
	SetStatistics(enabled bool)
}

// Store buffer administration
type BufferControl interface {
	Budget(logType logrecord.Type) (size int, err error)
	SetBudget(logType logrecord.Type, size int) (err error)
	Usage(logType logrecord.Type) (size int)
	Clear(logType logrecord.Type) (removed int, err error)
}

// Backends for every endpoint, nil members disable their endpoint
type Handlers struct {
	Search    DataSearcher
	Discover  Discoverer
	Aggregate AggSearcher
	Stats     StatsSource
	Flow      FlowSource
	Settings  SettingsControl
	Buffers   BufferControl
}

// Usage of one type's buffer
type BufferState struct {
	Type   string `json:"type"`
	Budget int    `json:"budget"`
	Usage  int    `json:"usage"`
}
