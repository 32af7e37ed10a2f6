package daemon

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"devlogd/internal/metrics"
	"runtime/debug"
	"time"
)

// Any component exposing interval counters
type MetricSource interface {
	CollectMetrics(interval time.Duration) (collection []metrics.Metric)
}

// Gathers component metrics and saves to central registry
type Gatherer struct {
	Interval  time.Duration     // Polling interval to gather metrics at
	Retention time.Duration     // Maximum time to maintain metrics for
	Registry  *metrics.Registry // Storage for metric data
	Sources   []MetricSource
}

// Creates a gatherer polling sources every interval and keeping maximumMetricAge of history
func NewGatherer(sources []MetricSource, interval time.Duration, maximumMetricAge time.Duration) (new *Gatherer) {
	new = &Gatherer{
		Registry:  metrics.New(),
		Sources:   sources,
		Interval:  interval,
		Retention: maximumMetricAge,
	}
	return
}

// Polls sources until ctx is done
func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)

	// Track last run times for each interval
	lastRun := time.Now()

	ticker := time.NewTicker(gatherer.Interval / 2) // Use polling interval half of desired record interval
	defer ticker.Stop()

	// Counter to track how many ticks have passed (for retention)
	var tickCount int

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastRun) >= gatherer.Interval {
				timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)

				lastRun = now
				gatherer.runIntervalTasks(ctx, timeSlice, gatherer.Interval)
			}

			// Conduct old metric evaluations and cleanup
			tickCount++
			if tickCount >= 30 {
				removed := gatherer.Registry.Prune(now, gatherer.Retention)
				if removed > 0 {
					logctx.LogEvent(ctx, global.VerbosityFullData, global.InfoLog,
						"pruned %d metric time slice(s) older than %s\n", removed, gatherer.Retention)
				}
				tickCount = 0
			}
		}
	}
}

// Read metrics from every component into one time slice
func (gatherer *Gatherer) runIntervalTasks(ctx context.Context, timeSlice time.Time, interval time.Duration) {
	// Record panics and continue on next interval
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collector thread: %v\n%s", fatalError, stack)
		}
	}()

	var collection []metrics.Metric
	for _, source := range gatherer.Sources {
		collection = append(collection, source.CollectMetrics(interval)...)
	}
	gatherer.Registry.Add(timeSlice, collection)
}
