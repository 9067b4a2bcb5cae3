package buffer

import (
	"sync"
)

// Keyed holds one DropOldest ring per key behind a single ready signal.
// Many producers may write concurrently; one consumer drains. Eviction is
// per key, so a flooding key never pushes out another key's items.
type Keyed[T any] struct {
	perKey int
	onDrop func(key string, item T)

	mu    sync.RWMutex
	rings map[string]Buffer[T]
	order []string

	ready chan struct{}
}

// NewKeyed creates a keyed buffer holding at most perKey items for each key.
// onDrop, when non-nil, is called with every evicted item.
func NewKeyed[T any](perKey int, onDrop func(key string, item T)) *Keyed[T] {
	if perKey <= 0 {
		perKey = 1
	}
	return &Keyed[T]{
		perKey: perKey,
		onDrop: onDrop,
		rings:  make(map[string]Buffer[T]),
		ready:  make(chan struct{}, 1),
	}
}

func (k *Keyed[T]) ring(key string) Buffer[T] {
	k.mu.RLock()
	r, ok := k.rings[key]
	k.mu.RUnlock()
	if ok {
		return r
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if r, ok := k.rings[key]; ok {
		return r
	}

	opts := applyOptions[T](WithOverflowPolicy[T](DropOldest))
	if k.onDrop != nil {
		onDrop := k.onDrop
		opts.dropCallback = func(item T) { onDrop(key, item) }
	}
	// Without metrics newCircularBuffer cannot fail.
	cb, _ := newCircularBuffer(k.perKey, opts)
	k.rings[key] = cb
	k.order = append(k.order, key)
	return cb
}

// Write appends item under key, evicting that key's oldest item when full.
// It never blocks.
func (k *Keyed[T]) Write(key string, item T) {
	_ = k.ring(key).Write(item)
	select {
	case k.ready <- struct{}{}:
	default:
	}
}

// Ready receives a signal after writes. Signals coalesce.
func (k *Keyed[T]) Ready() <-chan struct{} {
	return k.ready
}

// Drain removes up to max items per key and hands each non-empty batch to fn
// in per-key FIFO order. Keys are visited in first-seen order.
func (k *Keyed[T]) Drain(max int, fn func(key string, items []T)) int {
	k.mu.RLock()
	keys := make([]string, len(k.order))
	copy(keys, k.order)
	k.mu.RUnlock()

	total := 0
	for _, key := range keys {
		items := k.ring(key).ReadBatch(max)
		if len(items) == 0 {
			continue
		}
		total += len(items)
		fn(key, items)
	}
	return total
}

// Len returns the number of buffered items across all keys.
func (k *Keyed[T]) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	n := 0
	for _, r := range k.rings {
		n += r.Size()
	}
	return n
}

// Depth returns the number of buffered items for key.
func (k *Keyed[T]) Depth(key string) int {
	k.mu.RLock()
	r, ok := k.rings[key]
	k.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.Size()
}

// Summary returns the statistics of key's ring, the zero summary for an
// unseen key.
func (k *Keyed[T]) Summary(key string) StatsSummary {
	k.mu.RLock()
	r, ok := k.rings[key]
	k.mu.RUnlock()
	if !ok {
		return StatsSummary{}
	}
	return r.Stats().Summary()
}

// Summaries returns the statistics of every key seen so far.
func (k *Keyed[T]) Summaries() map[string]StatsSummary {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]StatsSummary, len(k.rings))
	for key, r := range k.rings {
		out[key] = r.Stats().Summary()
	}
	return out
}

// PerKey returns the per-key capacity.
func (k *Keyed[T]) PerKey() int {
	return k.perKey
}
