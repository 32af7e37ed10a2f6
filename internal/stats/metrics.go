package stats

import (
	"devlogd/internal/metrics"
	"time"
)

func (collector *Collector) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	// Read and clear
	lines := collector.Metrics.Lines.Swap(0)
	bytes := collector.Metrics.Bytes.Swap(0)
	dropped := collector.Metrics.Dropped.Swap(0)

	collector.mu.Lock()
	domains := uint64(len(collector.domains))
	pids := uint64(len(collector.pids))
	collector.mu.Unlock()

	recordTime := time.Now()

	collection = []metrics.Metric{
		{
			Name:        "counted_lines",
			Description: "Records counted in the interval, stored or dropped",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: lines, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "counted_bytes",
			Description: "Tag and content bytes counted in the interval",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: bytes, Unit: "bytes", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "counted_dropped",
			Description: "Counted records that flow control dropped in the interval",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: dropped, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "active_domains",
			Description: "Domains with statistics since the last reset",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: domains, Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   recordTime,
		},
		{
			Name:        "active_pids",
			Description: "Processes with statistics since the last reset",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: pids, Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   recordTime,
		},
	}
	return
}
