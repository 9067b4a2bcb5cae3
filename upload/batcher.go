package upload

import (
	"time"

	"github.com/google/uuid"
)

// Limits bound a batch. Any limit reached triggers a flush.
type Limits struct {
	MaxBytes   int
	MaxAge     time.Duration
	MaxRecords int
}

// Batch is a set of encoded rows for one stream.
type Batch struct {
	ID        string
	Stream    string
	Rows      [][]byte
	Bytes     int
	CreatedAt time.Time

	// Attempts counts failed writes; NextAttempt is when the next may start.
	Attempts    int
	NextAttempt time.Time
	body        []byte
}

// Len returns the number of rows.
func (b *Batch) Len() int { return len(b.Rows) }

// Batcher accumulates rows for one stream. It is not safe for concurrent
// use; the pipeline's run loop owns every batcher.
type Batcher struct {
	stream string
	limits Limits
	cur    *Batch
}

// NewBatcher returns an empty batcher for stream.
func NewBatcher(stream string, limits Limits) *Batcher {
	return &Batcher{stream: stream, limits: limits}
}

// Add appends row and returns the batch when this row made it reach the
// byte or record limit. The returned batch is detached; the batcher starts
// empty again.
func (b *Batcher) Add(row []byte, now time.Time) *Batch {
	if b.cur == nil {
		b.cur = &Batch{ID: uuid.NewString(), Stream: b.stream, CreatedAt: now}
	}
	b.cur.Rows = append(b.cur.Rows, row)
	b.cur.Bytes += len(row)

	if (b.limits.MaxBytes > 0 && b.cur.Bytes >= b.limits.MaxBytes) ||
		(b.limits.MaxRecords > 0 && len(b.cur.Rows) >= b.limits.MaxRecords) {
		return b.Drain()
	}
	return nil
}

// Expired returns the open batch when it has reached MaxAge at now.
func (b *Batcher) Expired(now time.Time) *Batch {
	if b.cur == nil || b.limits.MaxAge <= 0 {
		return nil
	}
	if now.Sub(b.cur.CreatedAt) < b.limits.MaxAge {
		return nil
	}
	return b.Drain()
}

// Deadline returns when the open batch expires.
func (b *Batcher) Deadline() (time.Time, bool) {
	if b.cur == nil {
		return time.Time{}, false
	}
	return b.cur.CreatedAt.Add(b.limits.MaxAge), true
}

// Drain detaches and returns the open batch, nil when empty.
func (b *Batcher) Drain() *Batch {
	out := b.cur
	b.cur = nil
	return out
}

// Pending returns the open batch's row count and encoded size.
func (b *Batcher) Pending() (records, bytes int) {
	if b.cur == nil {
		return 0, 0
	}
	return len(b.cur.Rows), b.cur.Bytes
}
