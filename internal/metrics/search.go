package metrics

import (
	"devlogd/internal/global"
	"sort"
	"strings"
	"time"
)

// Daemon components publishing metrics, keyed by lower case name or short alias
var components = map[string]string{
	strings.ToLower(global.NSCollect):   global.NSCollect,
	strings.ToLower(global.NSFlow):      global.NSFlow,
	strings.ToLower(global.NSStats):     global.NSStats,
	strings.ToLower(global.NSStore):     global.NSStore,
	strings.ToLower(global.NSKmsg):      global.NSKmsg,
	strings.ToLower(global.NSTransport): global.NSTransport,
	strings.ToLower(global.NSForward):   global.NSForward,
	"flow":                              global.NSFlow,
	"stats":                             global.NSStats,
}

// Canonical form of a namespace query.
// Empty segments are dropped and a bare component name is placed under the daemon namespace,
// so "kmsg", "Kmsg" and "Daemon/Kmsg" all select the kernel reader metrics.
func ExpandNamespace(query []string) (expanded []string) {
	for _, segment := range query {
		if segment != "" {
			expanded = append(expanded, segment)
		}
	}
	if len(expanded) == 0 {
		return
	}

	if strings.EqualFold(expanded[0], global.NSDaemon) {
		expanded[0] = global.NSDaemon
		if len(expanded) > 1 {
			if component, ok := components[strings.ToLower(expanded[1])]; ok {
				expanded[1] = component
			}
		}
		return
	}

	component, ok := components[strings.ToLower(expanded[0])]
	if !ok {
		return
	}
	expanded = append([]string{global.NSDaemon, component}, expanded[1:]...)
	return
}

// Daemon component that published a metric namespace. Empty outside the daemon tree.
func ComponentOf(namespace []string) (component string) {
	if len(namespace) < 2 || namespace[0] != global.NSDaemon {
		return
	}
	component = namespace[1]
	return
}

// Prefix match, empty query matches all
func matchesNamespace(metricNS, queryNS []string) (matches bool) {
	if len(metricNS) < len(queryNS) {
		return
	}
	for i := range queryNS {
		if metricNS[i] != queryNS[i] {
			return
		}
	}
	matches = true
	return
}

// Time slice keys inside [start, end], oldest first. Zero bounds are open.
// Caller must hold the registry lock.
func (registry *Registry) slicesBetween(start, end time.Time) (timeSlices []time.Time) {
	for timeSlice := range registry.metrics {
		if !start.IsZero() && timeSlice.Before(start) {
			continue
		}
		if !end.IsZero() && timeSlice.After(end) {
			continue
		}
		timeSlices = append(timeSlices, timeSlice)
	}
	sort.Slice(timeSlices, func(i, j int) bool {
		return timeSlices[i].Before(timeSlices[j])
	})
	return
}

// Namespace keys of one time slice that fall under the query, sorted
func matchingNamespaces(slice map[string]map[string]Metric, queryNS []string) (namespaces []string) {
	for nsStr := range slice {
		if matchesNamespace(strings.Split(nsStr, "/"), queryNS) {
			namespaces = append(namespaces, nsStr)
		}
	}
	sort.Strings(namespaces)
	return
}

// Returns every recorded value of a metric under a namespace prefix, ordered by time then namespace.
// An empty name matches all names. Zero start/end leave the window open on that side.
func (registry *Registry) Search(name string, namespacePrefix []string, start, end time.Time) (results []Metric) {
	queryNS := ExpandNamespace(namespacePrefix)

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	for _, timeSlice := range registry.slicesBetween(start, end) {
		slice := registry.metrics[timeSlice]
		for _, nsStr := range matchingNamespaces(slice, queryNS) {
			if name != "" {
				if metric, ok := slice[nsStr][name]; ok {
					results = append(results, metric)
				}
				continue
			}

			names := make([]string, 0, len(slice[nsStr]))
			for metricName := range slice[nsStr] {
				names = append(names, metricName)
			}
			sort.Strings(names)
			for _, metricName := range names {
				results = append(results, slice[nsStr][metricName])
			}
		}
	}
	return
}

// Lists the distinct metrics published by components (no values or timestamps).
// Name and description are substring filters, unit and type are exact. Empty filters match all.
// Output is grouped by namespace, then sorted by name.
func (registry *Registry) Discover(name, description string, namespacePrefix []string, unit string, metricType MetricType) (results []Metric) {
	queryNS := ExpandNamespace(namespacePrefix)

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, slice := range registry.metrics {
		for _, nsStr := range matchingNamespaces(slice, queryNS) {
			for _, metric := range slice[nsStr] {
				if name != "" && !strings.Contains(metric.Name, name) {
					continue
				}
				if description != "" && !strings.Contains(metric.Description, description) {
					continue
				}
				if unit != "" && metric.Value.Unit != unit {
					continue
				}
				if metricType != "" && metric.Type != metricType {
					continue
				}

				key := nsStr + "|" + metric.Name + "|" + string(metric.Type) + "|" + metric.Value.Unit
				if _, exists := seen[key]; exists {
					continue
				}
				seen[key] = struct{}{}

				results = append(results, Metric{
					Name:        metric.Name,
					Description: metric.Description,
					Namespace:   metric.Namespace,
					Type:        metric.Type,
					Value:       MetricValue{Unit: metric.Value.Unit},
				})
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		nsI := strings.Join(results[i].Namespace, "/")
		nsJ := strings.Join(results[j].Namespace, "/")
		if nsI != nsJ {
			return nsI < nsJ
		}
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		return results[i].Value.Unit < results[j].Value.Unit
	})
	return
}
