// Central registry for storing time-based metrics and their associated data
package metrics

import (
	"strings"
	"time"
)

// Creates new metric registry storage
func New() (new *Registry) {
	new = &Registry{
		metrics: make(map[time.Time]map[string]map[string]Metric),
	}
	return
}

// Setup metrics map for this collection interval.
// The returned slice key is now rounded down to the interval.
func (registry *Registry) NewTimeSlice(now time.Time, interval time.Duration) (timeSlice time.Time) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	timeSlice = now
	if interval > 0 {
		timeSlice = now.Truncate(interval)
	}
	if registry.metrics[timeSlice] == nil {
		registry.metrics[timeSlice] = make(map[string]map[string]Metric)
	}
	return
}

// Adds batch of metrics to an existing time slice
func (registry *Registry) Add(timeSlice time.Time, batch []Metric) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	slice, ok := registry.metrics[timeSlice]
	if !ok {
		return
	}

	for _, metric := range batch {
		namespace := strings.Join(metric.Namespace, "/")
		if slice[namespace] == nil {
			slice[namespace] = make(map[string]Metric)
		}
		slice[namespace][metric.Name] = metric
	}
}
