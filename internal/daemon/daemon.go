// Daemon wiring the log collection pipeline: socket transport and kernel reader feed the collector,
// which gates records into the shared store read by the forwarder and the query server.
package daemon

import (
	"context"
	"devlogd/internal/collector"
	"devlogd/internal/flowctrl"
	"devlogd/internal/forward"
	"devlogd/internal/global"
	"devlogd/internal/kmsg"
	"devlogd/internal/lifecycle"
	"devlogd/internal/logctx"
	"devlogd/internal/server"
	"devlogd/internal/stats"
	"devlogd/internal/store"
	"devlogd/internal/transport"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Create new daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	return
}

// Starts pipeline workers in background - gracefully shuts down if startup error is encountered
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = context.WithValue(daemon.ctx, global.LoggerKey, logctx.GetLogger(globalCtx))

	// Top level tag for daemon logs
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSDaemon)
	namespace := []string{global.NSDaemon}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")

	daemon.cfg.setDefaults()
	global.PID = os.Getpid()

	// Domain policy
	daemon.Comps.Policy, err = newLivePolicy(daemon.cfg.DomainFile)
	if err != nil {
		err = fmt.Errorf("failed loading domain policy: %v", err)
		return
	}

	// Statistics and store
	daemon.Comps.Stats = stats.New(namespace, daemon.cfg.TagStats)
	daemon.Comps.Store, err = store.New(namespace, daemon.cfg.BufferSizePerType, daemon.Comps.Stats)
	if err != nil {
		err = fmt.Errorf("failed creating log store: %v", err)
		return
	}

	// Gating
	daemon.Comps.Flow = flowctrl.New(namespace, flowctrl.Config{
		Window:       daemon.cfg.FlowWindow,
		DefaultQuota: daemon.cfg.DefaultQuota,
		QuotaFunc:    daemon.Comps.Policy.Quota,
	})
	daemon.Comps.Collector = collector.New(namespace,
		collector.Config{
			DebugMode:   daemon.cfg.DebugMode,
			FlowControl: daemon.cfg.FlowControl,
			Statistics:  daemon.cfg.Statistics,
		},
		daemon.Comps.Store,
		daemon.Comps.Policy,
		daemon.Comps.Flow)

	// Forwarder reads the store, so it starts before any producer
	daemon.Comps.Forwarder, err = forward.New(namespace, forward.Config{
		Address:       daemon.cfg.BeatsAddress,
		BatchSize:     daemon.cfg.ForwardBatchSize,
		Compression:   daemon.cfg.ForwardCompression,
		Timeout:       daemon.cfg.ForwardTimeout,
		QueueSize:     daemon.cfg.ForwardQueueSize,
		IncludeKernel: daemon.cfg.ForwardKernel,
	}, daemon.Comps.Store)
	if err != nil {
		err = fmt.Errorf("failed creating forwarder: %v", err)
		return
	}
	daemon.Comps.Forwarder.Start(daemon.ctx)

	// Kernel log reader
	if daemon.cfg.KmsgEnabled {
		source := kmsg.NewDeviceSource(daemon.cfg.KmsgDevice, daemon.cfg.KmsgPollTimeout)
		daemon.Comps.Kmsg, err = kmsg.New(namespace, kmsg.Config{
			MaxFailures:   daemon.cfg.KmsgMaxFailures,
			RetryInterval: daemon.cfg.KmsgRetryInterval,
		}, source, daemon.Comps.Collector)
		if err != nil {
			err = fmt.Errorf("failed creating kernel log reader: %v", err)
			daemon.Shutdown()
			return
		}
		daemon.Comps.Kmsg.Start(daemon.ctx)
	}

	// Socket transport
	daemon.Comps.Transport, err = transport.New(namespace, transport.Config{
		SocketPath:    daemon.cfg.SocketPath,
		Readers:       daemon.cfg.Readers,
		UseActivation: daemon.cfg.UseActivation,
	}, daemon.Comps.Collector)
	if err != nil {
		err = fmt.Errorf("failed creating socket transport: %v", err)
		daemon.Shutdown()
		return
	}
	daemon.Comps.Transport.Start(daemon.ctx)

	// Metrics Collector
	daemon.metricsCollector = NewGatherer(daemon.metricSources(),
		daemon.cfg.MetricCollectionInterval,
		daemon.cfg.MetricMaxAge)
	workerCtx := daemon.ctx
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.metricsCollector.Run(workerCtx)
	}()

	// Service manager watchdog
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		lifecycle.Watchdog(workerCtx)
	}()

	// Metric Server
	if daemon.cfg.MetricQueryServerEnabled {
		// Top level tag for metric server logs (copy so return doesn't strip ns tags)
		serverCtx := daemon.ctx
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetric)
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetricSrv)

		daemon.MetricServer, err = server.SetupListener(serverCtx,
			daemon.cfg.MetricQueryServerPort,
			daemon.queryHandlers())
		if err != nil {
			err = fmt.Errorf("failed setting up query server: %v", err)
			daemon.Shutdown()
			return
		}
		daemon.wg.Add(1)
		go func() {
			defer daemon.wg.Done()
			server.Start(serverCtx, daemon.MetricServer)
		}()
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Startup complete, accepting records on %s\n", daemon.Comps.Transport.Addr())
	return
}

// Only components that exist report metrics
func (daemon *Daemon) metricSources() (sources []MetricSource) {
	sources = []MetricSource{
		daemon.Comps.Stats,
		daemon.Comps.Store,
		daemon.Comps.Flow,
		daemon.Comps.Collector,
		daemon.Comps.Transport,
	}
	if daemon.Comps.Kmsg != nil {
		sources = append(sources, daemon.Comps.Kmsg)
	}
	if daemon.Comps.Forwarder != nil {
		sources = append(sources, daemon.Comps.Forwarder)
	}
	return
}

func (daemon *Daemon) queryHandlers() (handlers server.Handlers) {
	handlers = server.Handlers{
		Search:    daemon.metricsCollector.Registry.Search,
		Discover:  daemon.metricsCollector.Registry.Discover,
		Aggregate: daemon.metricsCollector.Registry.Aggregate,
		Stats:     daemon.Comps.Stats,
		Flow:      daemon.Comps.Flow,
		Settings:  daemon.Comps.Collector,
		Buffers:   daemon.Comps.Store,
	}
	return
}

// Blocking daemon waiter
func (daemon *Daemon) Run() {
	<-daemon.ctx.Done()
}

// Re-reads the domain policy file. Records already in flight finish under the old policy.
func (daemon *Daemon) Reload(ctx context.Context) (err error) {
	if daemon.Comps.Policy == nil {
		err = fmt.Errorf("daemon not started")
		return
	}
	err = daemon.Comps.Policy.reload()
	if err != nil {
		err = fmt.Errorf("failed reloading domain policy: %v", err)
		return
	}
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Domain policy reloaded from '%s'\n", daemon.cfg.DomainFile)
	return
}

// Gracefully shutdown pipeline workers (errors are printed to program log buffer)
func (daemon *Daemon) Shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	// Stop metric server
	if daemon.MetricServer != nil {
		err := daemon.MetricServer.Shutdown(daemon.ctx)
		if err != nil && err != http.ErrServerClosed {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"metric HTTP server did not shutdown gracefully: %v\n", err)
		}
	}

	// Stop producers first so nothing new enters the store
	if daemon.Comps.Transport != nil {
		err := daemon.Comps.Transport.Stop()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"socket transport did not stop cleanly: %v\n", err)
		}
	}
	if daemon.Comps.Kmsg != nil {
		daemon.Comps.Kmsg.Stop()
		err := daemon.Comps.Kmsg.Close()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"failed closing kernel log device: %v\n", err)
		}
	}

	// Drain what the forwarder already queued
	daemon.Comps.Forwarder.Shutdown(daemon.ctx, global.DaemonShutdownTimeout/2)

	// Stop the run loop after producers are stopped
	daemon.cancel()

	// Wait for all workers to finish (with timeout)
	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Daemon shutdown completed successfully\n")
	case <-time.After(global.DaemonShutdownTimeout):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"Timeout: daemon did not shutdown within %v seconds\n",
			global.DaemonShutdownTimeout.Seconds())
	}
}
