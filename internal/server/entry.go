// HTTP server to expose metrics, statistics and runtime controls only on the local system
package server

import (
	"bytes"
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
)

const helpTemplate = `<!DOCTYPE html>
<html>
<head><title>devlogd query server</title></head>
<body>
<h1>devlogd query server</h1>
<p>Listening on http://@@LISTEN_ADDR@@:@@LISTEN_PORT@@/</p>
<ul>
<li><code>GET @@DISCOVER_PATH@@&lt;namespace&gt;?name=&amp;description=&amp;unit=&amp;type=</code> lists available metrics</li>
<li><code>GET @@DATA_PATH@@&lt;namespace&gt;?name=&amp;starttime=&amp;endtime=</code> returns metric samples</li>
<li><code>GET @@AGGREGATION_PATH@@&lt;namespace&gt;?name=&amp;aggregation=sum|avg|min|max&amp;starttime=&amp;endtime=</code> aggregates samples</li>
<li><code>GET @@STATS_PATH@@</code> returns log statistics, <code>DELETE</code> resets them</li>
<li><code>GET @@FLOW_PATH@@</code> returns flow control windows</li>
<li><code>GET @@SETTINGS_PATH@@</code> shows runtime switches, <code>POST ?debugMode=&amp;flowControl=&amp;statistics=</code> changes them</li>
<li><code>GET @@BUFFER_PATH@@</code> shows buffer usage, <code>POST ?type=&amp;size=</code> resizes, <code>DELETE ?type=</code> clears</li>
</ul>
<p>Times are RFC3339 or relative durations such as <code>-5m</code>.</p>
</body>
</html>
`

// Sets up HTTP listener configuration for local queries
func SetupListener(ctx context.Context, port int, handlers Handlers) (server *http.Server, err error) {
	requestMultiplexer := http.NewServeMux()

	// Replace variables in html with globals
	helpPage := strings.NewReplacer(
		"@@LISTEN_ADDR@@", global.HTTPListenAddr,
		"@@LISTEN_PORT@@", strconv.Itoa(port),
		"@@DATA_PATH@@", global.DataPath,
		"@@DISCOVER_PATH@@", global.DiscoveryPath,
		"@@AGGREGATION_PATH@@", global.AggregationPath,
		"@@STATS_PATH@@", global.StatsPath,
		"@@FLOW_PATH@@", global.FlowPath,
		"@@SETTINGS_PATH@@", global.SettingsPath,
		"@@BUFFER_PATH@@", global.BufferPath,
	).Replace(helpTemplate)

	// Root help page
	requestMultiplexer.HandleFunc("/", func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if clientRequest.URL.Path != "/" {
			serverResponder.WriteHeader(http.StatusNotFound)
			return
		}

		serverResponder.Header().Set("Content-Type", "text/html; charset=utf-8")
		serverResponder.WriteHeader(http.StatusOK)
		serverResponder.Write([]byte(helpPage))
	})

	if handlers.Discover != nil {
		requestMultiplexer.HandleFunc(global.DiscoveryPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			if clientRequest.Method != http.MethodGet {
				serverResponder.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			handleDiscovery(ctx, handlers.Discover, serverResponder, clientRequest)
		})
	}

	if handlers.Search != nil {
		requestMultiplexer.HandleFunc(global.DataPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			if clientRequest.Method != http.MethodGet {
				serverResponder.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			handleData(ctx, handlers.Search, serverResponder, clientRequest)
		})
	}

	if handlers.Aggregate != nil {
		requestMultiplexer.HandleFunc(global.AggregationPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			if clientRequest.Method != http.MethodGet {
				serverResponder.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			handleAggregation(ctx, handlers.Aggregate, serverResponder, clientRequest)
		})
	}

	if handlers.Stats != nil {
		requestMultiplexer.HandleFunc(global.StatsPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			handleStats(ctx, handlers.Stats, serverResponder, clientRequest)
		})
	}

	if handlers.Flow != nil {
		requestMultiplexer.HandleFunc(global.FlowPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			if clientRequest.Method != http.MethodGet {
				serverResponder.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			jResp(ctx, serverResponder, handlers.Flow.Snapshot())
		})
	}

	if handlers.Settings != nil {
		requestMultiplexer.HandleFunc(global.SettingsPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			handleSettings(ctx, handlers.Settings, serverResponder, clientRequest)
		})
	}

	if handlers.Buffers != nil {
		requestMultiplexer.HandleFunc(global.BufferPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
			handleBuffer(ctx, handlers.Buffers, serverResponder, clientRequest)
		})
	}

	// Server configuration
	server = &http.Server{
		Addr:         global.HTTPListenAddr + ":" + strconv.Itoa(port),
		Handler:      requestMultiplexer,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
	}
	return
}

// Starts the HTTP server and waits for requests
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Query server starting on %s (http://%s/)\n",
		server.Addr,
		server.Addr,
	)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Query server failed to start: %v\n", err)
	}
}

// Encodes JSON and sends as response body
func jResp(ctx context.Context, serverResponder http.ResponseWriter, content any) {
	jRespStatus(ctx, serverResponder, http.StatusOK, content)
}

func jRespStatus(ctx context.Context, serverResponder http.ResponseWriter, status int, content any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(content); err != nil {
		serverResponder.WriteHeader(http.StatusInternalServerError)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed marshaling query results: %v\n", err)
		return
	}
	serverResponder.Header().Set("Content-Type", "application/json")
	serverResponder.WriteHeader(status)
	serverResponder.Write(buf.Bytes())
}

// Logs HTTP server errors to internal program buffer (via context logger)
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(
		logWriter.ctx,
		global.VerbosityStandard,
		global.ErrorLog,
		"%s\n", strings.TrimSpace(string(p)),
	)
	return
}
