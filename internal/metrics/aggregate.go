package metrics

import (
	"devlogd/internal/global"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Reduces every matching metric value in the time window to a single summary metric
func (registry *Registry) Aggregate(aggType, name string, namespacePrefix []string, start, end time.Time) (result Metric, err error) {
	matches := registry.Search(name, namespacePrefix, start, end)
	if len(matches) == 0 {
		err = fmt.Errorf("no metrics found for name %q", name)
		return
	}

	values := make([]float64, 0, len(matches))
	for _, match := range matches {
		var value float64
		value, err = toFloat(match.Value.Raw)
		if err != nil {
			err = fmt.Errorf("metric %q at %s is not numeric: %v", match.Name, match.Timestamp.Format(time.RFC3339), err)
			return
		}
		values = append(values, value)
	}

	var aggregate float64
	switch aggType {
	case global.MetricSum, global.MetricAvg:
		for _, value := range values {
			aggregate += value
		}
		if aggType == global.MetricAvg {
			aggregate = aggregate / float64(len(values))
		}
	case global.MetricMin:
		aggregate = math.Inf(1)
		for _, value := range values {
			aggregate = math.Min(aggregate, value)
		}
	case global.MetricMax:
		aggregate = math.Inf(-1)
		for _, value := range values {
			aggregate = math.Max(aggregate, value)
		}
	default:
		err = fmt.Errorf("unknown aggregation type %q", aggType)
		return
	}

	result = Metric{
		Name:        name,
		Description: aggType + " of " + matches[0].Description,
		Namespace:   ExpandNamespace(namespacePrefix),
		Value: MetricValue{
			Raw:      aggregate,
			Unit:     matches[0].Value.Unit,
			Interval: end.Sub(start),
		},
		Type:      Summary,
		Timestamp: time.Now(),
	}
	return
}

// Numeric view of a raw metric value
func toFloat(raw any) (value float64, err error) {
	switch typed := raw.(type) {
	case int:
		value = float64(typed)
	case int32:
		value = float64(typed)
	case int64:
		value = float64(typed)
	case uint:
		value = float64(typed)
	case uint32:
		value = float64(typed)
	case uint64:
		value = float64(typed)
	case float32:
		value = float64(typed)
	case float64:
		value = typed
	case string:
		value, err = strconv.ParseFloat(typed, 64)
	default:
		err = fmt.Errorf("unsupported value type %T", raw)
	}
	return
}
