package hub

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/pitwall/pkg/buffer"
)

// ErrClosed is returned by Next once the subscriber is unsubscribed or the
// hub has stopped.
var ErrClosed = stderrors.New("hub: subscriber closed")

// Subscriber is one live consumer. Its queue is written only by the hub and
// read only by the subscriber's owner.
type Subscriber struct {
	ID          string
	ConnectedAt time.Time

	// filter is guarded by the hub mutex
	filter Filter

	queue     buffer.Buffer[*Message]
	delivered atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

func newSubscriber(filter Filter, capacity int, onDrop func()) (*Subscriber, error) {
	q, err := buffer.NewCircularBuffer[*Message](capacity,
		buffer.WithOverflowPolicy[*Message](buffer.DropOldest),
		buffer.WithDropCallback[*Message](func(*Message) { onDrop() }),
	)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		filter:      filter,
		queue:       q,
		done:        make(chan struct{}),
	}, nil
}

func (s *Subscriber) enqueue(m *Message) {
	if s.queue.Write(m) == nil {
		s.delivered.Add(1)
	}
}

// Next returns the oldest queued message, waiting until one arrives, ctx is
// done or the subscriber is closed.
func (s *Subscriber) Next(ctx context.Context) (*Message, error) {
	for {
		if m, ok := s.queue.Read(); ok {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			// drain what was queued before the close
			if m, ok := s.queue.Read(); ok {
				return m, nil
			}
			return nil, ErrClosed
		case <-s.queue.Ready():
		}
	}
}

// Len returns the number of queued messages.
func (s *Subscriber) Len() int { return s.queue.Size() }

// Capacity returns the queue bound.
func (s *Subscriber) Capacity() int { return s.queue.Capacity() }

// Dropped returns how many messages were evicted unread.
func (s *Subscriber) Dropped() int64 { return s.queue.Stats().Drops() }

// Done is closed when the subscriber is closed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		_ = s.queue.Close()
		close(s.done)
	})
}
