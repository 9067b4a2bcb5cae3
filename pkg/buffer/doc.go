// Package buffer provides bounded, non-blocking buffers for pitwall's hand-off points.
//
// Every queue between the UDP loops, the distribution hub, subscribers and the
// upload pipeline is one of these buffers. A full buffer never blocks the
// writer: with DropOldest (the default) the oldest item is evicted and the
// drop is counted, so the newest data always survives.
//
// Basic usage:
//
//	buf, err := buffer.NewCircularBuffer[Record](256,
//	    buffer.WithDropCallback[Record](func(r Record) { dropped.Inc() }),
//	)
//	_ = buf.Write(rec)
//	select {
//	case <-buf.Ready():
//	    batch := buf.ReadBatch(64)
//	case <-ctx.Done():
//	}
//
// Keyed buffers give each producer key its own ring so eviction stays local:
//
//	in := buffer.NewKeyed[Record](1024, nil)
//	in.Write(rec.SourceID, rec)
//	in.Drain(1024, func(source string, items []Record) { ... })
package buffer
