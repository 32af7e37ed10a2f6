package store

import (
	"devlogd/internal/metrics"
	"devlogd/pkg/logrecord"
	"time"
)

func (store *Store) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	counters := []struct {
		name        string
		description string
		unit        string
		value       uint64
	}{
		{"inserted_records", "Records appended in the interval", "count", store.Metrics.Inserted.Swap(0)},
		{"inserted_bytes", "Tag and content bytes appended in the interval", "bytes", store.Metrics.Bytes.Swap(0)},
		{"evicted_records", "Records removed to stay within budget in the interval", "count", store.Metrics.Evicted.Swap(0)},
		{"rejected_records", "Records refused by the store in the interval", "count", store.Metrics.Rejected.Swap(0)},
	}
	for _, counter := range counters {
		collection = append(collection, metrics.Metric{
			Name:        counter.name,
			Description: counter.description,
			Namespace:   store.Namespace,
			Value:       metrics.MetricValue{Raw: counter.value, Unit: counter.unit, Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		})
	}

	// Per-type usage, namespaced by type name
	for logType := logrecord.Type(0); logType < logrecord.TypeMax; logType++ {
		budget, _ := store.Budget(logType)
		collection = append(collection,
			metrics.Metric{
				Name:        "used_bytes",
				Description: "Bytes currently held for the type",
				Namespace:   append(append([]string{}, store.Namespace...), logType.String()),
				Value:       metrics.MetricValue{Raw: uint64(store.Usage(logType)), Unit: "bytes", Interval: interval},
				Type:        metrics.Gauge,
				Timestamp:   recordTime,
			},
			metrics.Metric{
				Name:        "budget_bytes",
				Description: "Byte budget of the type",
				Namespace:   append(append([]string{}, store.Namespace...), logType.String()),
				Value:       metrics.MetricValue{Raw: uint64(budget), Unit: "bytes", Interval: interval},
				Type:        metrics.Gauge,
				Timestamp:   recordTime,
			},
		)
	}
	return
}
