// In-memory log store with per-type byte budgets
package store

import (
	"devlogd/internal/global"
	"devlogd/internal/stats"
	"devlogd/pkg/logrecord"
	"fmt"
	"sort"
	"time"

	"github.com/pbnjay/memory"
)

// Share of a full budget removed in one eviction pass
const dropRatio = 0.05

// Creates a store with the same budget for every type.
// Budgets are clamped so all types together stay within half of system memory.
func New(namespace []string, budgetPerType int, counter StatsCounter) (new *Store, err error) {
	new = &Store{
		Namespace: append(namespace, global.NSStore),
		readers:   make(map[*Reader]struct{}),
		counter:   counter,
		maxBudget: budgetCeiling(),
	}

	if budgetPerType == 0 {
		budgetPerType = global.DefaultBufferPerType
	}
	for logType := logrecord.Type(0); logType < logrecord.TypeMax; logType++ {
		err = new.SetBudget(logType, budgetPerType)
		if err != nil {
			err = fmt.Errorf("failed to set %s buffer size: %w", logType, err)
			return
		}
	}

	// One marker record per type so readers can see where each buffer starts
	for logType := logrecord.Type(0); logType < logrecord.TypeMax; logType++ {
		_, err = new.Insert(internalRecord(logType, "Zeroth log of type: "+logType.String()))
		if err != nil {
			err = fmt.Errorf("failed to insert zeroth %s record: %w", logType, err)
			return
		}
	}
	return
}

func budgetCeiling() (ceiling int) {
	ceiling = global.MaxBufferPerType
	total := memory.TotalMemory()
	if total == 0 {
		return
	}
	perType := total / 2 / uint64(logrecord.TypeMax)
	if perType < uint64(ceiling) {
		ceiling = max(int(perType), global.MinBufferPerType)
	}
	return
}

// Appends one record, evicting the oldest records of the same type when its budget is full.
// Returns the stored size (tag and content including terminators).
func (store *Store) Insert(record logrecord.Record) (size int, err error) {
	if !record.Type.Valid() {
		store.Metrics.Rejected.Add(1)
		err = fmt.Errorf("%w: %d", ErrTypeInvalid, record.Type)
		return
	}
	if len(record.Tag) == 0 || len(record.Tag) > logrecord.MaxTagLen || record.Length() > logrecord.MaxLogLen {
		store.Metrics.Rejected.Add(1)
		err = fmt.Errorf("%w: tag length %d, record length %d", ErrInvalidRecord, len(record.Tag), record.Length())
		return
	}

	size = record.Length() - logrecord.HeaderSize
	list := listFor(record.Type)

	store.mu.Lock()
	if size+store.sizeByType[record.Type] >= store.budget[record.Type] {
		store.evict(list, record.Type)
	}
	store.lists[list] = append(store.lists[list], entry{
		seq:    store.nextSeq,
		size:   size,
		record: record,
	})
	store.nextSeq++
	store.sizeByType[record.Type] += size
	store.mu.Unlock()

	store.Metrics.Inserted.Add(1)
	store.Metrics.Bytes.Add(uint64(size))

	store.notify(list)
	return
}

// Forwards a statistics sample to the configured counter
func (store *Store) CountLog(sample stats.Sample) {
	if store.counter == nil {
		return
	}
	store.counter.Count(sample)
}

// Removes oldest records of logType until usage falls below the low watermark.
// Caller holds the write lock.
func (store *Store) evict(list listID, logType logrecord.Type) {
	lowWatermark := int(float64(store.budget[logType]) * (1 - dropRatio))

	entries := store.lists[list]
	kept := entries[:0]
	for _, item := range entries {
		if item.record.Type != logType || store.sizeByType[logType] <= lowWatermark {
			kept = append(kept, item)
			continue
		}
		store.sizeByType[logType] -= item.size
		store.Metrics.Evicted.Add(1)
		store.markEvicted(list, item.seq)
	}
	// Drop references held past the new end
	clear(entries[len(kept):])
	store.lists[list] = kept
}

// Removes every record of logType and returns the bytes freed.
// Readers are not told about cleared records.
func (store *Store) Clear(logType logrecord.Type) (removed int, err error) {
	if !logType.Valid() {
		err = fmt.Errorf("%w: %d", ErrTypeInvalid, logType)
		return
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	list := listFor(logType)
	entries := store.lists[list]
	kept := entries[:0]
	for _, item := range entries {
		if item.record.Type == logType {
			removed += item.size
			continue
		}
		kept = append(kept, item)
	}
	clear(entries[len(kept):])
	store.lists[list] = kept
	store.sizeByType[logType] = 0
	return
}

// Changes the byte budget of one type. Takes effect on the next insert.
func (store *Store) SetBudget(logType logrecord.Type, size int) (err error) {
	if !logType.Valid() {
		err = fmt.Errorf("%w: %d", ErrTypeInvalid, logType)
		return
	}
	if size < global.MinBufferPerType || size > store.maxBudget {
		err = fmt.Errorf("%w: %d not within %d-%d", ErrBudgetInvalid, size, global.MinBufferPerType, store.maxBudget)
		return
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.budget[logType] = size
	return
}

// Current byte budget for one type
func (store *Store) Budget(logType logrecord.Type) (size int, err error) {
	if !logType.Valid() {
		err = fmt.Errorf("%w: %d", ErrTypeInvalid, logType)
		return
	}
	store.mu.RLock()
	defer store.mu.RUnlock()
	size = store.budget[logType]
	return
}

// Bytes currently held for one type
func (store *Store) Usage(logType logrecord.Type) (size int) {
	if !logType.Valid() {
		return
	}
	store.mu.RLock()
	defer store.mu.RUnlock()
	size = store.sizeByType[logType]
	return
}

// Number of records currently held across all types
func (store *Store) Len() (count int) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	for _, entries := range store.lists {
		count += len(entries)
	}
	return
}

// First entry index with sequence number at or after seq. Caller holds a lock.
func (store *Store) indexFrom(list listID, seq uint64) (idx int) {
	entries := store.lists[list]
	idx = sort.Search(len(entries), func(i int) bool { return entries[i].seq >= seq })
	return
}

func listFor(logType logrecord.Type) (list listID) {
	list = dataList
	if logType == logrecord.TypeKmsg {
		list = kmsgList
	}
	return
}

// Record generated by the store itself
func internalRecord(logType logrecord.Type, content string) (record logrecord.Record) {
	now := time.Now()
	var mono time.Duration
	if monoNow, err := monotonicNow(); err == nil {
		mono = monoNow
	}
	record = logrecord.Record{
		Type:     logType,
		Level:    logrecord.LevelInfo,
		TimeSec:  uint32(now.Unix()),
		TimeNsec: uint32(now.Nanosecond()),
		MonoSec:  uint32(mono / time.Second),
		Tag:      global.ProgBaseName,
		Content:  content,
	}
	return
}
