package mpmc

import (
	"devlogd/internal/metrics"
	"time"
)

func (queue *Queue[T]) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	// Helper to add metrics
	add := func(name string, raw any, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   queue.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     unit,
				Interval: interval,
			},
		})
	}

	add("capacity", uint64(queue.Size), "count", metrics.Gauge, "Number of cells in the queue")
	add("depth", queue.Metrics.Depth.Load(), "count", metrics.Gauge, "Current number of items in the queue")
	add("byte_sum", queue.Metrics.Bytes.Load(), "bytes", metrics.Gauge, "Byte sum of all items in the queue")
	add("push_attempts", queue.Metrics.PushAttempts.Swap(0), "count", metrics.Counter, "Total push attempts in the interval")
	add("push_success", queue.Metrics.PushSuccess.Swap(0), "count", metrics.Counter, "Total push attempts that succeeded in the interval")
	add("push_full", queue.Metrics.PushFull.Swap(0), "count", metrics.Counter, "Push attempts that found the queue full in the interval")
	add("push_cas_retries", queue.Metrics.PushCASRetries.Swap(0), "count", metrics.Counter, "Sum of retries to push in the interval")
	add("pop_attempts", queue.Metrics.PopAttempts.Swap(0), "count", metrics.Counter, "Total pop attempts in the interval")
	add("pop_success", queue.Metrics.PopSuccess.Swap(0), "count", metrics.Counter, "Total pop attempts that succeeded in the interval")
	add("pop_waits", queue.Metrics.PopWaits.Swap(0), "count", metrics.Counter, "Times a consumer waited on an empty queue in the interval")
	add("pop_cas_retries", queue.Metrics.PopCASRetries.Swap(0), "count", metrics.Counter, "Sum of retries to pop in the interval")

	return
}
