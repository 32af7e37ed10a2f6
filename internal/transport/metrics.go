package transport

import (
	"devlogd/internal/metrics"
	"time"
)

func (manager *Manager) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	// Read and clear
	busyNs := manager.Metrics.BusyNs.Swap(0)
	datagrams := manager.Metrics.Datagrams.Swap(0)
	truncated := manager.Metrics.Truncated.Swap(0)
	noCreds := manager.Metrics.NoCreds.Swap(0)
	readErrors := manager.Metrics.ReadErrors.Swap(0)
	refused := manager.Metrics.Refused.Swap(0)
	sumNs := manager.Metrics.SumNs.Swap(0)
	maxNs := manager.Metrics.MaxNs.Swap(0)

	recordTime := time.Now()

	// Percent of reader time spent handling datagrams
	var busyPct float64
	if interval > 0 && manager.readers > 0 {
		busyPct = (float64(busyNs) / float64(interval.Nanoseconds()*int64(manager.readers))) * 100
	}

	var avgNs uint64
	if datagrams > 0 {
		avgNs = sumNs / datagrams
	}

	collection = []metrics.Metric{
		{
			Name:        "busy_time_percent",
			Description: "Share of reader time spent handling datagrams in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: busyPct, Unit: "%", Interval: interval},
			Type:        metrics.Summary,
			Timestamp:   recordTime,
		},
		{
			Name:        "datagrams_total",
			Description: "Datagrams handed to the collector in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: datagrams, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "truncated_datagrams",
			Description: "Oversized datagrams discarded in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: truncated, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "datagrams_without_credentials",
			Description: "Datagrams delivered without sender credentials in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: noCreds, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "read_errors",
			Description: "Failed socket reads in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: readErrors, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "refused_records",
			Description: "Records the collector returned an error for in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: refused, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "elapsed_time_avg_ns",
			Description: "Average time spent handling one datagram in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: avgNs, Unit: "ns", Interval: interval},
			Type:        metrics.Summary,
			Timestamp:   recordTime,
		},
		{
			Name:        "elapsed_time_max_ns",
			Description: "Maximum (seen) time spent handling one datagram in the interval",
			Namespace:   manager.Namespace,
			Value:       metrics.MetricValue{Raw: maxNs, Unit: "ns", Interval: interval},
			Type:        metrics.Summary,
			Timestamp:   recordTime,
		},
	}
	return
}
