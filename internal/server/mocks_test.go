package server

import (
	"devlogd/internal/collector"
	"devlogd/internal/flowctrl"
	"devlogd/internal/metrics"
	"devlogd/internal/stats"
	"devlogd/pkg/logrecord"
	"errors"
	"time"
)

func mockDiscoverer(results []metrics.Metric) Discoverer {
	return func(name, desc string, ns []string, unit string, mt metrics.MetricType) []metrics.Metric {
		return results
	}
}

func mockDataSearcher(results []metrics.Metric) DataSearcher {
	return func(name string, ns []string, start, end time.Time) []metrics.Metric {
		return results
	}
}

func mockAggSearcher(result metrics.Metric, err error) AggSearcher {
	return func(agg, name string, ns []string, start, end time.Time) (metrics.Metric, error) {
		return result, err
	}
}

type mockStats struct {
	snap   stats.Snapshot
	resets int
}

func (mock *mockStats) Snapshot() stats.Snapshot { return mock.snap }
func (mock *mockStats) Reset() { mock.resets++ }

type mockFlow struct {
	windows []flowctrl.WindowState
}

func (mock *mockFlow) Snapshot() []flowctrl.WindowState { return mock.windows }

type mockSettings struct {
	settings collector.Settings
}

func (mock *mockSettings) Settings() collector.Settings { return mock.settings }
func (mock *mockSettings) SetDebugMode(enabled bool) { mock.settings.DebugMode = enabled }
func (mock *mockSettings) SetFlowControl(enabled bool) { mock.settings.FlowControl = enabled }
func (mock *mockSettings) SetStatistics(enabled bool) { mock.settings.Statistics = enabled }

type mockBuffers struct {
	budget  map[logrecord.Type]int
	usage   map[logrecord.Type]int
	cleared []logrecord.Type
}

func newMockBuffers() *mockBuffers {
	return &mockBuffers{
		budget: map[logrecord.Type]int{logrecord.TypeCore: 262144},
		usage:  map[logrecord.Type]int{logrecord.TypeCore: 100},
	}
}

func (mock *mockBuffers) Budget(logType logrecord.Type) (int, error) {
	return mock.budget[logType], nil
}

func (mock *mockBuffers) SetBudget(logType logrecord.Type, size int) error {
	if size < 65536 {
		return errors.New("buffer size out of range")
	}
	mock.budget[logType] = size
	return nil
}

func (mock *mockBuffers) Usage(logType logrecord.Type) int {
	return mock.usage[logType]
}

func (mock *mockBuffers) Clear(logType logrecord.Type) (int, error) {
	removed := mock.usage[logType]
	mock.usage[logType] = 0
	mock.cleared = append(mock.cleared, logType)
	return removed, nil
}
