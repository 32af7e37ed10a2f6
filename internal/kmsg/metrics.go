package kmsg

import (
	"devlogd/internal/metrics"
	"time"
)

func (reader *Reader) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	values := []struct {
		name        string
		description string
		value       uint64
	}{
		{"reads", "Successful reads from the kernel message source", reader.Metrics.Reads.Swap(0)},
		{"would_block", "Reads retried immediately after a transient condition", reader.Metrics.WouldBlock.Swap(0)},
		{"read_failures", "Failed reads from the kernel message source", reader.Metrics.Failures.Swap(0)},
		{"parsed_records", "Kernel records produced by the parser", reader.Metrics.Parsed.Swap(0)},
		{"malformed_lines", "Kernel message lines that could not be parsed", reader.Metrics.Malformed.Swap(0)},
		{"inserted_records", "Kernel records accepted by the storage path", reader.Metrics.Inserted.Swap(0)},
		{"insert_errors", "Kernel records refused by the storage path", reader.Metrics.InsertErrors.Swap(0)},
		{"aborts", "Worker exits after too many consecutive failures", reader.Metrics.Aborts.Swap(0)},
	}

	for _, value := range values {
		collection = append(collection, metrics.Metric{
			Name:        value.name,
			Description: value.description,
			Namespace:   reader.Namespace,
			Value:       metrics.MetricValue{Raw: value.value, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		})
	}

	var running uint64
	if reader.State() == Started {
		running = 1
	}
	collection = append(collection, metrics.Metric{
		Name:        "running",
		Description: "1 while the kernel reader is started",
		Namespace:   reader.Namespace,
		Value:       metrics.MetricValue{Raw: running, Unit: "bool", Interval: interval},
		Type:        metrics.Gauge,
		Timestamp:   recordTime,
	})
	return
}
