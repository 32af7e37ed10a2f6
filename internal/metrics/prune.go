package metrics

import "time"

// Drops time slices older than maxAge relative to currentTime and returns how many were removed.
// The newest slice always survives so the last reading of every component stays queryable.
func (registry *Registry) Prune(currentTime time.Time, maxAge time.Duration) (removed int) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	var newest time.Time
	for timeSlice := range registry.metrics {
		if timeSlice.After(newest) {
			newest = timeSlice
		}
	}

	for timeSlice := range registry.metrics {
		if timeSlice.Equal(newest) {
			continue
		}
		if currentTime.Sub(timeSlice) > maxAge {
			delete(registry.metrics, timeSlice)
			removed++
		}
	}
	return
}
