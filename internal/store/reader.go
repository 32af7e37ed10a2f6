package store

import (
	"devlogd/pkg/logrecord"
	"strconv"
)

// Registers a cursor over kernel records (kmsg true) or everything else.
// fromStart positions the cursor at the oldest held record, otherwise only new records are returned.
// onNew is called after every insert into the list; it must not block or call back into the store.
func (store *Store) NewReader(kmsg bool, fromStart bool, onNew func()) (reader *Reader) {
	reader = &Reader{
		store: store,
		list:  dataList,
		onNew: onNew,
	}
	if kmsg {
		reader.list = kmsgList
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	if !fromStart {
		reader.next.Store(store.nextSeq)
	}

	store.readersMu.Lock()
	store.readers[reader] = struct{}{}
	store.readersMu.Unlock()
	return
}

// Returns the next unread record. Evicted unread records are reported first as a single notice.
func (reader *Reader) Next() (record logrecord.Record, ok bool) {
	skipped := reader.skipped.Swap(0)
	if skipped > 0 {
		record = internalRecord(logrecord.TypeCore, "Slow reader missed log lines: "+strconv.FormatUint(skipped, 10))
		ok = true
		return
	}

	store := reader.store
	store.mu.RLock()
	defer store.mu.RUnlock()

	idx := store.indexFrom(reader.list, reader.next.Load())
	entries := store.lists[reader.list]
	if idx >= len(entries) {
		return
	}

	record = entries[idx].record
	reader.next.Store(entries[idx].seq + 1)
	ok = true
	return
}

// Unregisters the reader
func (reader *Reader) Close() {
	reader.store.readersMu.Lock()
	defer reader.store.readersMu.Unlock()
	delete(reader.store.readers, reader)
}

// Counts an evicted entry against every reader that had not consumed it yet.
// Caller holds the store write lock.
func (store *Store) markEvicted(list listID, seq uint64) {
	store.readersMu.RLock()
	defer store.readersMu.RUnlock()
	for reader := range store.readers {
		if reader.list == list && reader.next.Load() <= seq {
			reader.skipped.Add(1)
		}
	}
}

func (store *Store) notify(list listID) {
	store.readersMu.RLock()
	defer store.readersMu.RUnlock()
	for reader := range store.readers {
		if reader.list == list && reader.onNew != nil {
			reader.onNew()
		}
	}
}
