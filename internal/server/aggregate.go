package server

import (
	"context"
	"devlogd/internal/global"
	"net/http"
	"strings"
)

// Handles metric search requests based on time and aggregation type
func handleAggregation(baseCtx context.Context, search AggSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	rawNamespace := strings.TrimPrefix(clientRequest.URL.Path, global.AggregationPath)
	reqNamespace := strings.Split(rawNamespace, "/")

	reqName := clientRequest.FormValue("name")
	aggType := clientRequest.FormValue("aggregation")

	reqStartTime, reqEndTime, err := parseTimeRange(clientRequest)
	if err != nil {
		serverResponder.WriteHeader(http.StatusBadRequest)
		return
	}

	// Query internal metric registry
	result, err := search(aggType, reqName, reqNamespace, reqStartTime, reqEndTime)
	if err != nil {
		jResp(baseCtx, serverResponder, Jerror{Msg: err.Error()})
		return
	}
	jResp(baseCtx, serverResponder, result.Convert())
}
