package health

import (
	"sync"

	"github.com/nous-sync/nse/pkg/errs"
)

// QueuedWrite is one write accepted locally while CanSync is false.
type QueuedWrite struct {
	NodeID   string
	Priority int
}

// OfflineQueue buffers writes made while offline for later draining once
// the device transitions back to a CanSync-capable state. Capacity-bound:
// once full, further enqueues fail with errs.OfflineQueueFull.
type OfflineQueue struct {
	mu       sync.Mutex
	items    []QueuedWrite
	capacity int
}

// NewOfflineQueue returns a queue that rejects enqueues beyond capacity.
func NewOfflineQueue(capacity int) *OfflineQueue {
	return &OfflineQueue{capacity: capacity}
}

// Enqueue adds w, ordered by descending priority (higher priority drains
// first), ties broken FIFO.
func (q *OfflineQueue) Enqueue(w QueuedWrite) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return errs.NewOfflineQueueFullError(q.capacity)
	}

	idx := len(q.items)
	for i, existing := range q.items {
		if w.Priority > existing.Priority {
			idx = i
			break
		}
	}
	q.items = append(q.items, QueuedWrite{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = w
	return nil
}

// Len returns the number of queued writes.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every queued write, in priority order, for
// the caller to push to the relay now that CanSync is true again.
func (q *OfflineQueue) Drain() []QueuedWrite {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
