// Multi-producer Multi-Consumer lock-free ring buffer queue with power-of-two capacity
package mpmc

import (
	"context"
	"devlogd/internal/global"
	"fmt"
	"runtime"
	"time"

	"github.com/pbnjay/memory"
)

// Share of free memory a single queue may claim
const memoryShareDivisor = 8

// Creates a new queue, capacity is rounded up to the next power of two
func New[T any](namespace []string, capacity int) (new *Queue[T], err error) {
	if capacity < 2 {
		err = fmt.Errorf("capacity must be greater than or equal to 2")
		return
	}
	size := nextPowerOfTwo(capacity)

	new = &Queue[T]{
		Namespace: append(namespace, global.NSQueue),
		Size:      size,
		mask:      uint64(size - 1),
		buf:       make([]cell[T], size),
		notEmpty:  make(chan struct{}, 1),
	}
	for i := range new.buf {
		new.buf[i].seq.Store(uint64(i))
	}
	return
}

// Picks a capacity between minimum and maximum that fits in free system memory
func CapacityFor(itemBytes, minimum, maximum int) (capacity int) {
	capacity = prevPowerOfTwo(maximum)
	if itemBytes <= 0 {
		return
	}

	availMem := memory.FreeMemory()
	if availMem == 0 {
		// Unknown, trust the configured bound
		return
	}

	budget := availMem / memoryShareDivisor
	for capacity > minimum && uint64(capacity)*uint64(itemBytes) > budget {
		capacity >>= 1
	}
	if capacity < minimum {
		capacity = nextPowerOfTwo(minimum)
	}
	return
}

// Retries Push until it succeeds or ctx ends (includes built-in poll interval)
func (queue *Queue[T]) PushBlocking(ctx context.Context, value T, size int) (success bool) {
	for {
		if queue.Push(value, size) {
			success = true
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Attempts to write an element (non success = queue full)
func (queue *Queue[T]) Push(value T, size int) (success bool) {
	queue.Metrics.PushAttempts.Add(1)

	var pos uint64
	var slot *cell[T]
	for {
		pos = queue.tail.Load()
		slot = &queue.buf[pos&queue.mask]
		seq := slot.seq.Load()

		if seq == pos {
			if queue.tail.CompareAndSwap(pos, pos+1) {
				break
			}
			queue.Metrics.PushCASRetries.Add(1)
		} else if seq < pos {
			queue.Metrics.PushFull.Add(1)
			return
		} else {
			runtime.Gosched() // another producer claimed the cell
		}
	}

	// Counted before publishing so a consumer never decrements first
	queue.Metrics.PushSuccess.Add(1)
	queue.Metrics.Depth.Add(1)
	queue.Metrics.Bytes.Add(uint64(size))

	slot.data = value
	slot.size = size
	slot.seq.Store(pos + 1)

	// Wake one blocked consumer
	select {
	case queue.notEmpty <- struct{}{}:
	default:
	}

	success = true
	return
}

// Reads an element, blocking while empty. Returns false once ctx ends.
func (queue *Queue[T]) Pop(ctx context.Context) (out T, success bool) {
	queue.Metrics.PopAttempts.Add(1)

	for {
		pos := queue.head.Load()
		slot := &queue.buf[pos&queue.mask]
		seq := slot.seq.Load()

		if seq == pos+1 {
			if !queue.head.CompareAndSwap(pos, pos+1) {
				queue.Metrics.PopCASRetries.Add(1)
				continue
			}
			out = slot.data
			size := slot.size

			var zero T
			slot.data = zero
			slot.seq.Store(pos + queue.mask + 1)

			queue.Metrics.PopSuccess.Add(1)
			queue.Metrics.Depth.Add(^uint64(0))
			queue.Metrics.Bytes.Add(^uint64(size - 1))

			// Pass the wakeup on if more items are waiting
			if queue.Metrics.Depth.Load() > 0 {
				select {
				case queue.notEmpty <- struct{}{}:
				default:
				}
			}

			success = true
			return
		}

		if seq < pos+1 {
			// Empty, wait for a producer
			queue.Metrics.PopWaits.Add(1)
			select {
			case <-ctx.Done():
				return
			case <-queue.notEmpty:
			}
			continue
		}

		// Another consumer is ahead, reload
		runtime.Gosched()
	}
}

// Current number of queued items
func (queue *Queue[T]) Len() (depth int) {
	depth = int(queue.Metrics.Depth.Load())
	return
}

func nextPowerOfTwo(start int) (next int) {
	if start <= 1 {
		next = 1
		return
	}
	start--
	start |= start >> 1
	start |= start >> 2
	start |= start >> 4
	start |= start >> 8
	start |= start >> 16
	start |= start >> 32
	next = start + 1
	return
}

func prevPowerOfTwo(start int) (prev int) {
	if start <= 0 {
		return
	}
	prev = nextPowerOfTwo(start)
	if prev > start {
		prev >>= 1
	}
	return
}
