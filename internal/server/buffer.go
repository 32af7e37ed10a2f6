package server

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"devlogd/pkg/logrecord"
	"net/http"
	"strconv"
)

// GET reports budgets and usage, POST resizes one type, DELETE clears one type
func handleBuffer(ctx context.Context, control BufferControl, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	if clientRequest.Method == http.MethodGet {
		var states []BufferState
		for logType := logrecord.Type(0); logType < logrecord.TypeMax; logType++ {
			budget, _ := control.Budget(logType)
			states = append(states, BufferState{
				Type:   logType.String(),
				Budget: budget,
				Usage:  control.Usage(logType),
			})
		}
		jResp(ctx, serverResponder, states)
		return
	}

	if clientRequest.Method != http.MethodPost && clientRequest.Method != http.MethodDelete {
		serverResponder.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rawType := clientRequest.FormValue("type")
	logType, ok := logrecord.ParseType(rawType)
	if !ok {
		jRespStatus(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: "unknown log type: " + rawType})
		return
	}

	if clientRequest.Method == http.MethodDelete {
		removed, err := control.Clear(logType)
		if err != nil {
			jRespStatus(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
			return
		}
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
			"cleared %d bytes of %s records by query server request\n", removed, logType)
		budget, _ := control.Budget(logType)
		jResp(ctx, serverResponder, BufferState{Type: logType.String(), Budget: budget, Usage: control.Usage(logType)})
		return
	}

	size, err := strconv.Atoi(clientRequest.FormValue("size"))
	if err != nil {
		jRespStatus(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: "invalid size: " + clientRequest.FormValue("size")})
		return
	}
	err = control.SetBudget(logType, size)
	if err != nil {
		jRespStatus(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
		return
	}
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"%s buffer resized to %d bytes by query server request\n", logType, size)

	budget, _ := control.Budget(logType)
	jResp(ctx, serverResponder, BufferState{Type: logType.String(), Budget: budget, Usage: control.Usage(logType)})
}
