package store

import (
	"devlogd/internal/stats"
	"devlogd/pkg/logrecord"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrTypeInvalid   = errors.New("log type out of range")
	ErrInvalidRecord = errors.New("record not storable")
	ErrBudgetInvalid = errors.New("buffer size out of range")
)

// Receives one sample per counted record
type StatsCounter interface {
	Count(sample stats.Sample)
}

type listID int

const (
	dataList listID = iota // every type except kernel records
	kmsgList
	listCount
)

type entry struct {
	seq    uint64
	size   int
	record logrecord.Record
}

type Store struct {
	Namespace []string

	mu         sync.RWMutex
	lists      [listCount][]entry
	nextSeq    uint64
	sizeByType [logrecord.TypeMax]int
	budget     [logrecord.TypeMax]int
	maxBudget  int

	readersMu sync.RWMutex
	readers   map[*Reader]struct{}

	counter StatsCounter
	Metrics MetricStorage
}

// Cursor over one of the store lists
type Reader struct {
	store   *Store
	list    listID
	next    atomic.Uint64 // sequence number of the next unread entry
	skipped atomic.Uint64 // unread entries evicted since the last Next
	onNew   func()
}

type MetricStorage struct {
	Inserted atomic.Uint64 // records appended
	Bytes    atomic.Uint64 // bytes appended
	Evicted  atomic.Uint64 // records removed to make room
	Rejected atomic.Uint64 // records refused by Insert
}
