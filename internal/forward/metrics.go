package forward

import (
	"devlogd/internal/metrics"
	"time"
)

func (forwarder *Forwarder) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	add := func(name string, raw uint64, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   forwarder.Namespace,
			Value:       metrics.MetricValue{Raw: raw, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		})
	}

	add("queued_records", forwarder.Metrics.Queued.Swap(0), "Records moved from the store into the forward queue in the interval")
	add("sent_events", forwarder.Metrics.Sent.Swap(0), "Events acknowledged by the remote in the interval")
	add("batches", forwarder.Metrics.Batches.Swap(0), "Batches sent successfully in the interval")
	add("send_errors", forwarder.Metrics.SendErrors.Swap(0), "Failed sends in the interval")
	add("reconnects", forwarder.Metrics.Reconnects.Swap(0), "Connection attempts after a failure in the interval")
	add("abandoned_events", forwarder.Metrics.Abandoned.Swap(0), "Events dropped at shutdown in the interval")

	collection = append(collection, forwarder.queue.CollectMetrics(interval)...)
	return
}
