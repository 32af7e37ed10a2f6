package server

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"net/http"
	"strconv"
)

// GET shows the collector switches, POST changes any switch named in the query
func handleSettings(ctx context.Context, control SettingsControl, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	switch clientRequest.Method {
	case http.MethodGet:
		jResp(ctx, serverResponder, control.Settings())
		return
	case http.MethodPost:
	default:
		serverResponder.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switches := []struct {
		name  string
		apply func(bool)
	}{
		{"debugMode", control.SetDebugMode},
		{"flowControl", control.SetFlowControl},
		{"statistics", control.SetStatistics},
	}

	// Validate everything before changing anything
	values := make([]*bool, len(switches))
	for i, setting := range switches {
		raw := clientRequest.FormValue(setting.name)
		if raw == "" {
			continue
		}
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			jRespStatus(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: "invalid value for " + setting.name + ": " + raw})
			return
		}
		values[i] = &enabled
	}

	for i, setting := range switches {
		if values[i] == nil {
			continue
		}
		setting.apply(*values[i])
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
			"setting %s changed to %v by query server request\n", setting.name, *values[i])
	}

	jResp(ctx, serverResponder, control.Settings())
}
