// Package upload batches gateway records toward an external HTTP sink.
//
// Records are routed to one of four streams (telemetry, laps, sessions,
// events), encoded once on arrival and appended to that stream's Batcher. A
// batch is flushed as soon as its encoded size, its record count or its age
// reaches the configured limit, whichever comes first. Flushed batches are
// written by a worker pool; a failed write is retried with exponential
// backoff until the attempt limit, after which the batch is counted lost.
//
// Publish never blocks: the input queue evicts a stream's oldest record when
// full. On shutdown every open batch and every batch waiting for a retry gets
// exactly one more attempt.
package upload
