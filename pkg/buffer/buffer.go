// Package buffer provides generic, thread-safe bounded buffers with overflow policies.
//
//   - CircularBuffer: fixed-size ring, DropOldest or DropNewest on overflow
//   - Keyed: one ring per key behind a single ready signal, for
//     multiple producers feeding one consumer
//
// Statistics are always collected. Prometheus metrics are opt-in via WithMetrics.
// Writes never block; a full buffer evicts according to its policy.
package buffer

// Buffer represents a generic bounded buffer.
type Buffer[T any] interface {
	// Write adds an item, evicting per the overflow policy when full.
	// It never blocks.
	Write(item T) error

	// Read retrieves and removes the oldest item.
	Read() (T, bool)

	// ReadBatch retrieves and removes up to max items, oldest first.
	ReadBatch(max int) []T

	// Peek returns the oldest item without removing it.
	Peek() (T, bool)

	// Ready receives a signal after a write leaves the buffer non-empty.
	// Signals coalesce: one pending signal may stand for many writes.
	Ready() <-chan struct{}

	Size() int
	Capacity() int
	IsFull() bool
	IsEmpty() bool

	// Clear removes all items, reporting each to the drop callback.
	Clear()

	// Stats returns buffer statistics.
	Stats() *Statistics

	// Close rejects further writes. Buffered items stay readable.
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is called, outside the buffer lock, with each evicted item.
type DropCallback[T any] func(item T)

// NewCircularBuffer creates a new circular buffer with the specified capacity and options.
// It fails only when metrics were requested and could not be registered.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newCircularBuffer(capacity, opts)
}
