// Per-domain rolling window rate limiter
package flowctrl

import (
	"devlogd/internal/global"
	"devlogd/pkg/logrecord"
	"sort"
	"time"
)

const shardCount = 16

// Creates a controller with per-domain windows of cfg.Window length
func New(namespace []string, cfg Config) (new *Controller) {
	new = &Controller{
		Namespace: append(namespace, global.NSFlow),
		window:    cfg.Window,
		quota:     cfg.DefaultQuota,
		quotaFunc: cfg.QuotaFunc,
		now:       cfg.Now,
	}
	if new.window <= 0 {
		new.window = global.DefaultFlowWindow
	}
	if new.quota < 0 {
		new.quota = 0
	}
	if new.now == nil {
		new.now = time.Now
	}
	for i := range new.shards {
		new.shards[i].windows = make(map[uint32]*window)
	}
	return
}

// Classifies one record of the given type from the given domain.
// Application records are always accepted and leave no window state behind.
func (controller *Controller) Evaluate(logType logrecord.Type, domainID uint32) (decision Decision) {
	if logType == logrecord.TypeApp {
		controller.Metrics.Exempt.Add(1)
		decision.Action = Accept
		return
	}

	quota := controller.quotaFor(domainID)
	now := controller.now()

	shard := &controller.shards[domainID%shardCount]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, exists := shard.windows[domainID]
	if !exists {
		state = &window{start: now}
		shard.windows[domainID] = state
	} else if now.Sub(state.start) >= controller.window {
		prior := state.dropped
		state.start = now
		state.count = 1
		state.dropped = 0

		controller.Metrics.Accepted.Add(1)
		if prior > 0 {
			controller.Metrics.Rollovers.Add(1)
			decision = Decision{Action: AcceptWithRollover, Dropped: prior}
			return
		}
		decision.Action = Accept
		return
	}

	state.count++
	if quota > 0 && state.count > quota {
		state.dropped++
		controller.Metrics.Dropped.Add(1)
		decision.Action = Drop
		return
	}

	controller.Metrics.Accepted.Add(1)
	decision.Action = Accept
	return
}

// Current state of every domain seen so far, ordered by domain
func (controller *Controller) Snapshot() (states []WindowState) {
	for i := range controller.shards {
		shard := &controller.shards[i]
		shard.mu.Lock()
		for domainID, state := range shard.windows {
			states = append(states, WindowState{
				Domain:  domainID,
				Start:   state.start,
				Count:   state.count,
				Dropped: state.dropped,
				Quota:   controller.quotaFor(domainID),
			})
		}
		shard.mu.Unlock()
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Domain < states[j].Domain })
	return
}

func (controller *Controller) quotaFor(domainID uint32) (quota int) {
	quota = controller.quota
	if controller.quotaFunc == nil {
		return
	}
	override, ok := controller.quotaFunc(domainID)
	if ok {
		quota = override
	}
	return
}
