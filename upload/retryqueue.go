package upload

import (
	"slices"
	"sync"
	"time"
)

// retryQueue holds failed batches until their backoff elapses. Workers push;
// the run loop pops due batches.
type retryQueue struct {
	mu       sync.Mutex
	capacity int
	items    []*Batch
}

func newRetryQueue(capacity int) *retryQueue {
	return &retryQueue{capacity: capacity}
}

// push adds b, evicting and returning the batch due soonest when full.
func (q *retryQueue) push(b *Batch) (evicted *Batch) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		evicted = q.items[0]
		q.items = q.items[1:]
	}
	i, _ := slices.BinarySearchFunc(q.items, b, func(a, t *Batch) int {
		return a.NextAttempt.Compare(t.NextAttempt)
	})
	q.items = slices.Insert(q.items, i, b)
	return evicted
}

// due removes and returns batches whose NextAttempt is not after now.
func (q *retryQueue) due(now time.Time) []*Batch {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.items) && !q.items[n].NextAttempt.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	out := slices.Clone(q.items[:n])
	q.items = q.items[n:]
	return out
}

// drain removes and returns every queued batch.
func (q *retryQueue) drain() []*Batch {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *retryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
