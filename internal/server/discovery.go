package server

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/metrics"
	"net/http"
	"strings"
)

// Handles metric search to discover metrics (returns no actual data, only sample metric per individual metric)
func handleDiscovery(baseCtx context.Context, discover Discoverer, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	var reqNamespace []string
	rawNamespace := strings.TrimPrefix(clientRequest.URL.Path, global.DiscoveryPath)
	if rawNamespace != "" {
		reqNamespace = strings.Split(rawNamespace, "/")
	}

	reqType, ok := parseMetricType(clientRequest.FormValue("type"))
	if !ok {
		serverResponder.WriteHeader(http.StatusBadRequest)
		return
	}

	// Query internal metric registry
	rawResults := discover(
		clientRequest.FormValue("name"),
		clientRequest.FormValue("description"),
		reqNamespace,
		clientRequest.FormValue("unit"),
		reqType,
	)

	results := metrics.ConvertAll(rawResults)

	if len(results) == 0 {
		jResp(baseCtx, serverResponder, Jerror{Msg: "Search returned no results"})
	} else {
		jResp(baseCtx, serverResponder, results)
	}
}

// Empty input is valid and matches every type
func parseMetricType(raw string) (metricType metrics.MetricType, ok bool) {
	switch metrics.MetricType(strings.ToLower(raw)) {
	case metrics.Counter:
		metricType = metrics.Counter
	case metrics.Gauge:
		metricType = metrics.Gauge
	case metrics.Summary:
		metricType = metrics.Summary
	default:
		if raw != "" {
			return
		}
	}
	ok = true
	return
}
