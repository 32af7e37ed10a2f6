// Accumulates per type, level, domain and pid usage counters
package stats

import (
	"devlogd/internal/global"
	"devlogd/pkg/logrecord"
	"sort"
	"time"
)

// Creates an empty collector. tagStats enables per-domain tag breakdown.
func New(namespace []string, tagStats bool) (new *Collector) {
	new = &Collector{
		Namespace: append(namespace, global.NSStats),
		tagStats:  tagStats,
		domains:   make(map[uint32]*domainStats),
		pids:      make(map[uint32]*pidStats),
		since:     time.Now(),
	}
	return
}

// Records one sample. Safe for concurrent use.
func (collector *Collector) Count(sample Sample) {
	lines := Counter{Lines: 1, Bytes: uint64(max(sample.Len, 0))}
	if sample.Dropped {
		lines.Dropped = 1
	}

	collector.Metrics.Lines.Add(lines.Lines)
	collector.Metrics.Bytes.Add(lines.Bytes)
	collector.Metrics.Dropped.Add(lines.Dropped)

	logTime := time.Unix(int64(sample.TimeSec), int64(sample.TimeNsec))
	levelIdx, levelOK := levelIndex(sample.Level)

	collector.mu.Lock()
	defer collector.mu.Unlock()

	collector.total.add(lines)

	if sample.Type.Valid() {
		collector.byType[sample.Type].add(lines)
		if levelOK {
			collector.byLevel[sample.Type][levelIdx].add(lines)
		}
	}

	domain, ok := collector.domains[sample.Domain]
	if !ok {
		domain = &domainStats{}
		collector.domains[sample.Domain] = domain
	}
	domain.add(lines)
	if levelOK {
		domain.levels[levelIdx].add(lines)
	}
	if collector.tagStats {
		domain.countTag(sample.Tag, lines)
	}

	pid, ok := collector.pids[sample.Pid]
	if !ok {
		pid = &pidStats{logType: sample.Type}
		collector.pids[sample.Pid] = pid
	}
	pid.add(lines)

	if collector.firstLog.IsZero() || logTime.Before(collector.firstLog) {
		collector.firstLog = logTime
	}
	if logTime.After(collector.lastLog) {
		collector.lastLog = logTime
	}
}

// Clears all counters
func (collector *Collector) Reset() {
	collector.mu.Lock()
	defer collector.mu.Unlock()

	collector.total = Counter{}
	collector.byType = [logrecord.TypeMax]Counter{}
	collector.byLevel = [logrecord.TypeMax][levelCount]Counter{}
	collector.domains = make(map[uint32]*domainStats)
	collector.pids = make(map[uint32]*pidStats)
	collector.since = time.Now()
	collector.firstLog = time.Time{}
	collector.lastLog = time.Time{}
}

// Copies current counters, domains and pids sorted ascending
func (collector *Collector) Snapshot() (snap Snapshot) {
	collector.mu.Lock()
	defer collector.mu.Unlock()

	snap.Since = collector.since
	snap.FirstLog = collector.firstLog
	snap.LastLog = collector.lastLog
	snap.Total = collector.total

	for logType := logrecord.Type(0); logType < logrecord.TypeMax; logType++ {
		if collector.byType[logType].Lines == 0 {
			continue
		}
		snap.Types = append(snap.Types, TypeStats{
			Type:   logType.String(),
			Total:  collector.byType[logType],
			Levels: levelMap(collector.byLevel[logType]),
		})
	}

	for domainID, domain := range collector.domains {
		entry := DomainStats{
			Domain: domainID,
			Total:  domain.Counter,
			Levels: levelMap(domain.levels),
		}
		if len(domain.tags) > 0 {
			entry.Tags = make(map[string]Counter, len(domain.tags))
			for tag, count := range domain.tags {
				entry.Tags[tag] = *count
			}
		}
		snap.Domains = append(snap.Domains, entry)
	}
	sort.Slice(snap.Domains, func(i, j int) bool { return snap.Domains[i].Domain < snap.Domains[j].Domain })

	for pidID, pid := range collector.pids {
		snap.Pids = append(snap.Pids, PidStats{
			Pid:   pidID,
			Type:  pid.logType.String(),
			Total: pid.Counter,
		})
	}
	sort.Slice(snap.Pids, func(i, j int) bool { return snap.Pids[i].Pid < snap.Pids[j].Pid })
	return
}

func (counter *Counter) add(other Counter) {
	counter.Lines += other.Lines
	counter.Bytes += other.Bytes
	counter.Dropped += other.Dropped
}

// Tags beyond the per-domain limit are folded into one bucket
func (domain *domainStats) countTag(tag string, lines Counter) {
	if domain.tags == nil {
		domain.tags = make(map[string]*Counter)
	}
	count, ok := domain.tags[tag]
	if !ok {
		if len(domain.tags) >= maxTagsPerDomain {
			tag = overflowTag
			count = domain.tags[tag]
		}
		if count == nil {
			count = &Counter{}
			domain.tags[tag] = count
		}
	}
	count.add(lines)
}

func levelIndex(level logrecord.Level) (idx int, ok bool) {
	if !level.Valid() {
		return
	}
	idx, ok = int(level-logrecord.LevelDebug), true
	return
}

func levelMap(levels [levelCount]Counter) (named map[string]Counter) {
	named = make(map[string]Counter)
	for idx, count := range levels {
		if count.Lines == 0 {
			continue
		}
		named[(logrecord.LevelDebug + logrecord.Level(idx)).String()] = count
	}
	return
}
