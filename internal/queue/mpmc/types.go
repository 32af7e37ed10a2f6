package mpmc

import "sync/atomic"

type cell[T any] struct {
	seq  atomic.Uint64
	data T
	size int
}

// Bounded lock-free ring buffer, capacity is a power of two
type Queue[T any] struct {
	Namespace []string
	Size      int
	mask      uint64
	buf       []cell[T]
	head      atomic.Uint64
	tail      atomic.Uint64
	notEmpty  chan struct{}
	Metrics   MetricStorage
}

type MetricStorage struct {
	Depth atomic.Uint64 // Current items in queue
	Bytes atomic.Uint64 // Current byte size in queue (just data)

	PushAttempts   atomic.Uint64 // every Push call
	PushSuccess    atomic.Uint64 // CAS success
	PushFull       atomic.Uint64 // Push found no free cell
	PushCASRetries atomic.Uint64 // CAS failed (seq==pos but CAS failed)

	PopAttempts   atomic.Uint64 // every Pop call
	PopSuccess    atomic.Uint64 // CAS success
	PopWaits      atomic.Uint64 // Pop blocked on an empty queue
	PopCASRetries atomic.Uint64 // CAS failed
}
