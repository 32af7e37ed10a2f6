// Single entry point for inbound log records.
// Validates, rate limits and stores each record, then feeds statistics.
package collector

import (
	"context"
	"devlogd/internal/flowctrl"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"devlogd/internal/stats"
	"devlogd/internal/store"
	"devlogd/pkg/logrecord"
	"errors"
	"fmt"
	"time"
)

// Creates a collector writing accepted records to logStore, gated by validator and flow
func New(namespace []string, cfg Config, logStore Inserter, validator DomainValidator, flow FlowController) (new *Collector) {
	new = &Collector{
		Namespace: append(namespace, global.NSCollect),
		store:     logStore,
		validator: validator,
		flow:      flow,
	}
	new.debugMode.Store(cfg.DebugMode)
	new.flowControl.Store(cfg.FlowControl)
	new.statistics.Store(cfg.Statistics)
	return
}

// Handles one raw record from a producer. cred, when present, replaces the self-reported pid.
// Malformed, rejected and rate limited records are absorbed and return nil.
// A non-nil error means the store refused a record type it should never have received.
func (collector *Collector) OnRecordReceived(ctx context.Context, raw []byte, cred *logrecord.Credentials) (err error) {
	start := time.Now()
	defer collector.recordDuration(start)

	collector.Metrics.Received.Add(1)

	if len(raw) < logrecord.HeaderSize {
		collector.Metrics.Malformed.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"discarding record of %d bytes: shorter than header (%d)\n", len(raw), logrecord.HeaderSize)
		return
	}

	record, parseErr := logrecord.Decode(raw)
	if parseErr != nil {
		collector.Metrics.Malformed.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"discarding malformed record: %v\n", parseErr)
		return
	}

	debugMode := collector.debugMode.Load()

	if !debugMode && collector.validator != nil && !collector.validator.IsAcceptable(record.Type, record.Domain) {
		collector.Metrics.Rejected.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"rejecting record from unregistered domain 0x%X (type %s, pid %d)\n", record.Domain, record.Type, record.Pid)
		return
	}

	if cred != nil {
		record.Pid = uint32(cred.Pid)
	}

	dropped := false
	if collector.flowControl.Load() && !debugMode && record.Type != logrecord.TypeApp && collector.flow != nil {
		decision := collector.flow.Evaluate(record.Type, record.Domain)
		switch decision.Action {
		case flowctrl.Drop:
			dropped = true
			collector.Metrics.Dropped.Add(1)
		case flowctrl.AcceptWithRollover:
			collector.insertDropNotice(ctx, record, decision.Dropped)
		}
	}

	if !dropped {
		err = collector.insert(ctx, record)
	}

	if collector.statistics.Load() {
		collector.store.CountLog(sampleOf(record, dropped))
	}
	return
}

// Stores a record from a trusted source, skipping domain checks and flow control
func (collector *Collector) InsertTrusted(ctx context.Context, record logrecord.Record) (err error) {
	collector.Metrics.Kernel.Add(1)

	err = collector.insert(ctx, record)
	if err != nil {
		return
	}

	if collector.statistics.Load() {
		collector.store.CountLog(sampleOf(record, false))
	}
	return
}

// Typed store errors are returned, anything else is logged and absorbed
func (collector *Collector) insert(ctx context.Context, record logrecord.Record) (err error) {
	_, insertErr := collector.store.Insert(record)
	if insertErr == nil {
		collector.Metrics.Inserted.Add(1)
		return
	}

	collector.Metrics.StoreErrors.Add(1)
	if errors.Is(insertErr, store.ErrTypeInvalid) {
		err = fmt.Errorf("store refused record from domain 0x%X: %w", record.Domain, insertErr)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		return
	}
	logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
		"store did not accept record from domain 0x%X: %v\n", record.Domain, insertErr)
	return
}

func (collector *Collector) insertDropNotice(ctx context.Context, trigger logrecord.Record, dropped uint32) {
	notice, err := BuildDropNotice(trigger, dropped)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"unable to report %d dropped records for domain 0x%X: %v\n", dropped, trigger.Domain, err)
		return
	}

	err = collector.insert(ctx, notice)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"unable to report %d dropped records for domain 0x%X: %v\n", dropped, trigger.Domain, err)
		return
	}
	collector.Metrics.Notices.Add(1)
}

func sampleOf(record logrecord.Record, dropped bool) (sample stats.Sample) {
	sample = stats.Sample{
		Level:    record.Level,
		Type:     record.Type,
		Len:      record.Header().PayloadLen(),
		Dropped:  dropped,
		Domain:   record.Domain,
		Pid:      record.Pid,
		TimeSec:  record.TimeSec,
		TimeNsec: record.TimeNsec,
		MonoSec:  record.MonoSec,
		Tag:      record.Tag,
	}
	return
}

func (collector *Collector) recordDuration(start time.Time) {
	durNs := uint64(time.Since(start).Nanoseconds())
	collector.Metrics.SumNs.Add(durNs)
	for {
		oldMax := collector.Metrics.MaxNs.Load()
		if durNs <= oldMax || collector.Metrics.MaxNs.CompareAndSwap(oldMax, durNs) {
			return
		}
	}
}

// Debug mode skips domain gating and flow control
func (collector *Collector) SetDebugMode(enabled bool) {
	collector.debugMode.Store(enabled)
}

func (collector *Collector) SetFlowControl(enabled bool) {
	collector.flowControl.Store(enabled)
}

func (collector *Collector) SetStatistics(enabled bool) {
	collector.statistics.Store(enabled)
}

// Snapshot of the runtime switches
func (collector *Collector) Settings() (settings Settings) {
	settings = Settings{
		DebugMode:   collector.debugMode.Load(),
		FlowControl: collector.flowControl.Load(),
		Statistics:  collector.statistics.Load(),
	}
	return
}
