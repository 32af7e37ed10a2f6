package daemon

import (
	"devlogd/internal/global"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

// Loads JSON config from file
func LoadConfig(path string) (cfg JSONConfig, err error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config file: %v", err)
		return
	}

	err = json.Unmarshal(configFile, &cfg)
	if err != nil {
		err = fmt.Errorf("invalid config syntax in '%s': %v", path, err)
		return
	}

	return
}

// Parses JSON config into daemon config
func (cfg JSONConfig) NewDaemonConf() (config Config, err error) {
	config.DebugMode = cfg.DebugMode
	config.DomainFile = cfg.DomainFile

	// Socket settings
	config.SocketPath = cfg.Socket.Path
	config.Readers = cfg.Socket.Readers
	config.UseActivation = cfg.Socket.UseActivation

	// Kernel reader settings
	config.KmsgEnabled = cfg.Kmsg.Enabled
	config.KmsgDevice = cfg.Kmsg.Device
	config.KmsgMaxFailures = cfg.Kmsg.MaxFailures
	config.KmsgRetryInterval, err = parseDuration(cfg.Kmsg.RetryInterval)
	if err != nil {
		err = fmt.Errorf("failed to parse kmsg retry interval: %v", err)
		return
	}
	config.KmsgPollTimeout, err = parseDuration(cfg.Kmsg.PollTimeout)
	if err != nil {
		err = fmt.Errorf("failed to parse kmsg poll timeout: %v", err)
		return
	}

	// Flow control settings
	config.FlowControl = cfg.FlowControl.Enabled
	if cfg.FlowControl.DefaultQuota < 0 {
		err = fmt.Errorf("flow control default quota must not be negative: %d", cfg.FlowControl.DefaultQuota)
		return
	}
	config.DefaultQuota = cfg.FlowControl.DefaultQuota
	config.FlowWindow, err = parseDuration(cfg.FlowControl.Window)
	if err != nil {
		err = fmt.Errorf("failed to parse flow control window: %v", err)
		return
	}

	// Statistics settings
	config.Statistics = cfg.Statistics.Enabled
	config.TagStats = cfg.Statistics.TagStats

	// Store settings
	config.BufferSizePerType = cfg.Buffer.SizePerType
	if config.BufferSizePerType != 0 &&
		(config.BufferSizePerType < global.MinBufferPerType || config.BufferSizePerType > global.MaxBufferPerType) {
		err = fmt.Errorf("buffer size per type %d outside %d-%d", config.BufferSizePerType, global.MinBufferPerType, global.MaxBufferPerType)
		return
	}

	// Forward settings
	config.BeatsAddress = cfg.Forward.BeatsAddress
	config.ForwardBatchSize = cfg.Forward.BatchSize
	config.ForwardCompression = cfg.Forward.Compression
	config.ForwardQueueSize = cfg.Forward.QueueSize
	config.ForwardKernel = cfg.Forward.IncludeKernel
	config.ForwardTimeout, err = parseDuration(cfg.Forward.Timeout)
	if err != nil {
		err = fmt.Errorf("failed to parse forward timeout: %v", err)
		return
	}

	// Metric settings
	config.MetricQueryServerEnabled = cfg.Metrics.EnableQueryServer
	config.MetricQueryServerPort = cfg.Metrics.QueryServerPort
	config.MetricMaxAge, err = parseDuration(cfg.Metrics.MaxAge)
	if err != nil {
		err = fmt.Errorf("failed to parse metric max age time: %v", err)
		return
	}
	config.MetricCollectionInterval, err = parseDuration(cfg.Metrics.Interval)
	if err != nil {
		err = fmt.Errorf("failed to parse metric collection interval time: %v", err)
		return
	}
	return
}

// Empty input leaves the duration for setDefaults
func parseDuration(raw string) (dur time.Duration, err error) {
	if raw == "" {
		return
	}
	dur, err = time.ParseDuration(raw)
	if err != nil {
		return
	}
	if dur < 0 {
		err = fmt.Errorf("negative duration %s", raw)
	}
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() {
	// Socket
	if cfg.SocketPath == "" {
		cfg.SocketPath = global.DefaultSocketPath
	}
	if cfg.Readers <= 0 {
		cfg.Readers = global.DefaultListenerCount
	}
	logicalCPUCount := runtime.NumCPU()
	if cfg.Readers > logicalCPUCount {
		cfg.Readers = logicalCPUCount
	}

	// Kernel reader
	if cfg.KmsgDevice == "" {
		cfg.KmsgDevice = global.DefaultKmsgPath
	}
	if cfg.KmsgMaxFailures <= 0 {
		cfg.KmsgMaxFailures = global.DefaultKmsgMaxFailure
	}
	if cfg.KmsgRetryInterval == 0 {
		cfg.KmsgRetryInterval = global.DefaultKmsgRetryInterval
	}
	if cfg.KmsgPollTimeout == 0 {
		cfg.KmsgPollTimeout = global.DefaultKmsgPollTimeout
	}

	// Flow control
	if cfg.FlowWindow == 0 {
		cfg.FlowWindow = global.DefaultFlowWindow
	}

	// Store
	if cfg.BufferSizePerType == 0 {
		cfg.BufferSizePerType = global.DefaultBufferPerType
	}

	// Forwarding
	if cfg.ForwardTimeout == 0 {
		cfg.ForwardTimeout = global.ForwardDialTimeout
	}
	if cfg.ForwardQueueSize == 0 {
		cfg.ForwardQueueSize = global.DefaultMaxQueueSize
	}

	// Metrics
	if cfg.MetricMaxAge == 0 {
		cfg.MetricMaxAge = 1 * time.Hour
	}
	if cfg.MetricQueryServerPort == 0 {
		cfg.MetricQueryServerPort = global.HTTPListenPort
	}
	if cfg.MetricCollectionInterval == 0 {
		cfg.MetricCollectionInterval = time.Duration(15 * time.Second)
	}
}
