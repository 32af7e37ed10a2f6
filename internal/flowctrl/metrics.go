package flowctrl

import (
	"devlogd/internal/metrics"
	"time"
)

func (controller *Controller) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	// Read and clear
	accepted := controller.Metrics.Accepted.Swap(0)
	dropped := controller.Metrics.Dropped.Swap(0)
	rollovers := controller.Metrics.Rollovers.Swap(0)
	exempt := controller.Metrics.Exempt.Swap(0)

	recordTime := time.Now()

	var tracked uint64
	for i := range controller.shards {
		shard := &controller.shards[i]
		shard.mu.Lock()
		tracked += uint64(len(shard.windows))
		shard.mu.Unlock()
	}

	collection = []metrics.Metric{
		{
			Name:        "accepted_records",
			Description: "Records within their domain quota in the interval",
			Namespace:   controller.Namespace,
			Value:       metrics.MetricValue{Raw: accepted, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "dropped_records",
			Description: "Records dropped for exceeding their domain quota in the interval",
			Namespace:   controller.Namespace,
			Value:       metrics.MetricValue{Raw: dropped, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "window_rollovers_with_drops",
			Description: "Domain windows that closed with dropped records in the interval",
			Namespace:   controller.Namespace,
			Value:       metrics.MetricValue{Raw: rollovers, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "exempt_records",
			Description: "Application records not subject to flow control in the interval",
			Namespace:   controller.Namespace,
			Value:       metrics.MetricValue{Raw: exempt, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "tracked_domains",
			Description: "Domains with an active flow control window",
			Namespace:   controller.Namespace,
			Value:       metrics.MetricValue{Raw: tracked, Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   recordTime,
		},
	}
	return
}
