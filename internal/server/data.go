package server

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/metrics"
	"net/http"
	"strings"
)

// Handles metric search requests based on time for data
func handleData(baseCtx context.Context, search DataSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	rawNamespace := strings.TrimPrefix(clientRequest.URL.Path, global.DataPath)
	reqNamespace := strings.Split(rawNamespace, "/")

	reqName := clientRequest.FormValue("name")

	reqStartTime, reqEndTime, err := parseTimeRange(clientRequest)
	if err != nil {
		serverResponder.WriteHeader(http.StatusBadRequest)
		return
	}

	// Query internal metric registry
	rawResults := search(reqName, reqNamespace, reqStartTime, reqEndTime)

	results := metrics.ConvertAll(rawResults)

	if len(results) == 0 {
		jResp(baseCtx, serverResponder, Jerror{Msg: "Search returned no results"})
	} else {
		jResp(baseCtx, serverResponder, results)
	}
}
