package server

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"net/http"
)

// GET returns the statistics snapshot, DELETE starts a fresh collection period
func handleStats(ctx context.Context, source StatsSource, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	switch clientRequest.Method {
	case http.MethodGet:
		jResp(ctx, serverResponder, source.Snapshot())
	case http.MethodDelete:
		source.Reset()
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "log statistics reset by query server request\n")
		serverResponder.WriteHeader(http.StatusNoContent)
	default:
		serverResponder.WriteHeader(http.StatusMethodNotAllowed)
	}
}
