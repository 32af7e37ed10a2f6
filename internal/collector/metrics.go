package collector

import (
	"devlogd/internal/metrics"
	"time"
)

func (collector *Collector) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	// Read and clear
	received := collector.Metrics.Received.Swap(0)
	malformed := collector.Metrics.Malformed.Swap(0)
	rejected := collector.Metrics.Rejected.Swap(0)
	dropped := collector.Metrics.Dropped.Swap(0)
	inserted := collector.Metrics.Inserted.Swap(0)
	notices := collector.Metrics.Notices.Swap(0)
	storeErrors := collector.Metrics.StoreErrors.Swap(0)
	kernel := collector.Metrics.Kernel.Swap(0)
	sumNs := collector.Metrics.SumNs.Swap(0)
	maxNs := collector.Metrics.MaxNs.Swap(0)

	recordTime := time.Now()

	var avgNs uint64
	if received > 0 {
		avgNs = sumNs / received
	}

	counter := func(name, description string, value uint64) (metric metrics.Metric) {
		metric = metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: value, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		}
		return
	}

	collection = []metrics.Metric{
		counter("received_records", "Raw records handed to the collector in the interval", received),
		counter("malformed_records", "Records discarded as malformed in the interval", malformed),
		counter("rejected_records", "Records from unacceptable domains in the interval", rejected),
		counter("dropped_records", "Records dropped by flow control in the interval", dropped),
		counter("inserted_records", "Records accepted by the store in the interval", inserted),
		counter("drop_notices", "Drop notices inserted in the interval", notices),
		counter("store_errors", "Records the store refused in the interval", storeErrors),
		counter("kernel_records", "Trusted kernel records handled in the interval", kernel),
		{
			Name:        "elapsed_time_avg_ns",
			Description: "Average time spent handling one raw record in the interval",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: avgNs, Unit: "ns", Interval: interval},
			Type:        metrics.Summary,
			Timestamp:   recordTime,
		},
		{
			Name:        "elapsed_time_max_ns",
			Description: "Maximum (seen) time spent handling one raw record in the interval",
			Namespace:   collector.Namespace,
			Value:       metrics.MetricValue{Raw: maxNs, Unit: "ns", Interval: interval},
			Type:        metrics.Summary,
			Timestamp:   recordTime,
		},
	}
	return
}
