package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JSON form of a metric for the query server
func (inMetric Metric) Convert() (outMetric JMetric) {
	outMetric = JMetric{
		Name:        inMetric.Name,
		Description: inMetric.Description,
		Namespace:   strings.Join(inMetric.Namespace, "/"),
		Component:   ComponentOf(inMetric.Namespace),
		Type:        string(inMetric.Type),
		Timestamp:   inMetric.Timestamp.Format(time.RFC3339Nano),
		Value: JMetricValue{
			Raw:      formatRaw(inMetric.Value.Raw),
			Unit:     inMetric.Value.Unit,
			Interval: inMetric.Value.Interval.String(),
		},
	}
	return
}

// Converts a batch in order. Nil for an empty batch.
func ConvertAll(batch []Metric) (outMetrics []JMetric) {
	if len(batch) == 0 {
		return
	}
	outMetrics = make([]JMetric, 0, len(batch))
	for _, metric := range batch {
		outMetrics = append(outMetrics, metric.Convert())
	}
	return
}

// Counters print as plain integers, fractional values without exponent, durations in Go notation
func formatRaw(raw any) (text string) {
	switch typed := raw.(type) {
	case uint64:
		text = strconv.FormatUint(typed, 10)
	case int64:
		text = strconv.FormatInt(typed, 10)
	case int:
		text = strconv.Itoa(typed)
	case float64:
		text = strconv.FormatFloat(typed, 'f', -1, 64)
	case time.Duration:
		text = typed.String()
	default:
		text = fmt.Sprintf("%v", raw)
	}
	return
}
