package upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/metric"
	"github.com/c360/pitwall/pkg/buffer"
	"github.com/c360/pitwall/pkg/retry"
	"github.com/c360/pitwall/pkg/worker"
)

const retryQueueCapacity = 256

var (
	errRetryQueueFull         = stderrors.New("retry queue full")
	errShutdownBudgetExceeded = stderrors.New("shutdown budget exhausted")
)

// Deps are the pipeline's optional collaborators.
type Deps struct {
	Logger   *slog.Logger
	Registry *metric.MetricsRegistry

	// ShutdownBudget bounds the whole final flush. Zero means twice the
	// per-request timeout.
	ShutdownBudget time.Duration
}

// StreamStats counts one stream's traffic.
type StreamStats struct {
	Records        int64 `json:"records"`
	InputOverflow  int64 `json:"input_overflow"`
	Batches        int64 `json:"batches"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed_attempts"`
	Retries        int64 `json:"retries"`
	Lost           int64 `json:"lost_batches"`
	LostRecords    int64 `json:"lost_records"`
	PendingRecords int64 `json:"pending_records"`
	PendingBytes   int64 `json:"pending_bytes"`
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	Streams      map[string]StreamStats `json:"streams"`
	RetryQueue   int                    `json:"retry_queue"`
	EncodeErrors int64                  `json:"encode_errors"`
	Workers      worker.PoolStats       `json:"workers"`
}

type streamCounters struct {
	records, overflow, batches, succeeded, failed atomic.Int64
	retries, lost, lostRecords                    atomic.Int64
	pendingRecords, pendingBytes                  atomic.Int64
}

// Pipeline batches records per stream and writes them to a Sink.
type Pipeline struct {
	logger      *slog.Logger
	metrics     *Metrics
	codec       Codec
	sink        Sink
	limits      Limits
	maxAttempts int
	backoff     retry.Config
	timeout     time.Duration
	budget      time.Duration

	input    *buffer.Keyed[*gateway.Record]
	batchers map[string]*Batcher
	retries  *retryQueue
	pool     *worker.Pool[*Batch]

	counters     map[string]*streamCounters
	encodeErrors atomic.Int64
}

// New creates a pipeline writing to sink. Call Run to start it.
func New(cfg config.UploadConfig, sink Sink, deps Deps) (*Pipeline, error) {
	if sink == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil sink"), "upload", "New", "sink check")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, errors.WrapInvalid(err, "upload", "New", "codec selection")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.Duration(5 * time.Second)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if deps.ShutdownBudget <= 0 {
		deps.ShutdownBudget = 2 * cfg.Timeout.Std()
	}
	m, err := newMetrics(deps.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "upload", "New", "metrics registration")
	}

	p := &Pipeline{
		logger:      deps.Logger.With("component", "upload", "codec", codec.Name()),
		metrics:     m,
		codec:       codec,
		sink:        sink,
		limits:      Limits{MaxBytes: cfg.MaxBytes, MaxAge: cfg.MaxAge.Std(), MaxRecords: cfg.MaxRecords},
		maxAttempts: cfg.MaxAttempts,
		backoff: retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialBackoff.Std(),
			MaxDelay:     cfg.MaxBackoff.Std(),
			Multiplier:   2,
			AddJitter:    true,
		},
		timeout:  cfg.Timeout.Std(),
		budget:   deps.ShutdownBudget,
		batchers: make(map[string]*Batcher, len(config.Streams)),
		retries:  newRetryQueue(retryQueueCapacity),
		counters: make(map[string]*streamCounters, len(config.Streams)),
	}
	for _, s := range config.Streams {
		p.batchers[s] = NewBatcher(s, p.limits)
		p.counters[s] = &streamCounters{}
	}

	capacity := cfg.InputCapacity
	if capacity <= 0 {
		capacity = 4096
	}
	p.input = buffer.NewKeyed[*gateway.Record](capacity, func(stream string, _ *gateway.Record) {
		p.counters[stream].overflow.Add(1)
		p.metrics.overflowed(stream)
	})

	p.pool = worker.NewPool[*Batch](cfg.Workers, cfg.Workers*4, p.write,
		worker.WithMetricsRegistry[*Batch](deps.Registry, "upload"))
	return p, nil
}

// Publish queues rec for batching. It never blocks.
func (p *Pipeline) Publish(rec *gateway.Record) {
	p.input.Write(StreamOf(rec), rec)
}

// Run batches and flushes until ctx is done, then gives every open and
// retrying batch one final attempt.
func (p *Pipeline) Run(ctx context.Context) error {
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	if err := p.pool.Start(poolCtx); err != nil {
		return errors.Wrap(err, "upload", "Run", "start workers")
	}

	ticker := time.NewTicker(p.tickInterval())
	defer ticker.Stop()

	p.logger.Info("Upload pipeline started",
		"max_bytes", p.limits.MaxBytes, "max_age", p.limits.MaxAge, "max_records", p.limits.MaxRecords)
	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil
		case <-p.input.Ready():
			p.ingest(time.Now())
		case now := <-ticker.C:
			p.ingest(now)
			p.expire(now)
			p.retryDue(now)
		}
	}
}

// tickInterval resolves age and backoff deadlines to within a tenth of the
// shorter of the two.
func (p *Pipeline) tickInterval() time.Duration {
	d := p.limits.MaxAge
	if b := p.backoff.InitialDelay; b > 0 && (d <= 0 || b < d) {
		d = b
	}
	d /= 10
	return min(max(d, 5*time.Millisecond), 100*time.Millisecond)
}

func (p *Pipeline) ingest(now time.Time) {
	p.input.Drain(p.input.PerKey(), func(stream string, recs []*gateway.Record) {
		b := p.batchers[stream]
		c := p.counters[stream]
		for _, rec := range recs {
			row, err := p.codec.Marshal(rec)
			if err != nil {
				p.encodeErrors.Add(1)
				p.logger.Warn("Dropping unencodable record", "stream", stream, "source", rec.SourceID, "error", err)
				continue
			}
			c.records.Add(1)
			if full := b.Add(row, now); full != nil {
				p.dispatch(full)
			}
		}
		p.updatePending(stream)
	})
}

func (p *Pipeline) expire(now time.Time) {
	for stream, b := range p.batchers {
		if full := b.Expired(now); full != nil {
			p.dispatch(full)
			p.updatePending(stream)
		}
	}
}

func (p *Pipeline) retryDue(now time.Time) {
	for _, b := range p.retries.due(now) {
		p.dispatch(b)
	}
}

func (p *Pipeline) updatePending(stream string) {
	n, size := p.batchers[stream].Pending()
	c := p.counters[stream]
	c.pendingRecords.Store(int64(n))
	c.pendingBytes.Store(int64(size))
}

// dispatch hands b to the worker pool.
func (p *Pipeline) dispatch(b *Batch) {
	if err := p.encodeBody(b); err != nil {
		p.lose(b, err)
		return
	}
	if b.Attempts == 0 {
		p.counters[b.Stream].batches.Add(1)
	}
	if err := p.pool.Submit(b); err != nil {
		p.failed(b, err, time.Now())
	}
}

func (p *Pipeline) encodeBody(b *Batch) error {
	if b.body != nil {
		return nil
	}
	body, err := p.codec.Body(Envelope{BatchID: b.ID, Stream: b.Stream, CreatedAt: b.CreatedAt, Count: len(b.Rows)}, b.Rows)
	if err != nil {
		return err
	}
	b.body = body
	p.metrics.bodySize(b.Stream, len(body))
	return nil
}

// write is the worker processor.
func (p *Pipeline) write(ctx context.Context, b *Batch) error {
	if err := p.send(ctx, b); err != nil {
		p.failed(b, err, time.Now())
		return err
	}
	p.succeeded(b)
	return nil
}

func (p *Pipeline) send(ctx context.Context, b *Batch) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.sink.Send(ctx, &Upload{
		BatchID:     b.ID,
		Stream:      b.Stream,
		ContentType: p.codec.ContentType(),
		Body:        b.body,
		Records:     len(b.Rows),
	})
}

func (p *Pipeline) succeeded(b *Batch) {
	p.counters[b.Stream].succeeded.Add(1)
	p.metrics.attempt(b.Stream, true)
	p.logger.Debug("Batch uploaded", "stream", b.Stream, "batch_id", b.ID, "records", len(b.Rows), "attempt", b.Attempts+1)
}

// failed counts a failed attempt and schedules a retry or drops the batch.
func (p *Pipeline) failed(b *Batch, err error, now time.Time) {
	c := p.counters[b.Stream]
	c.failed.Add(1)
	p.metrics.attempt(b.Stream, false)
	b.Attempts++

	class := errors.Classify(err)
	if retry.IsNonRetryable(err) || class != errors.ErrorTransient || b.Attempts >= p.maxAttempts {
		p.lose(b, err)
		return
	}

	b.NextAttempt = now.Add(p.backoff.Delay(b.Attempts))
	c.retries.Add(1)
	p.metrics.retried(b.Stream)
	p.logger.Debug("Batch upload failed, retrying",
		"stream", b.Stream, "batch_id", b.ID, "attempt", b.Attempts, "next_attempt", b.NextAttempt, "error", err)
	if evicted := p.retries.push(b); evicted != nil {
		p.lose(evicted, errRetryQueueFull)
	}
}

func (p *Pipeline) lose(b *Batch, err error) {
	c := p.counters[b.Stream]
	c.lost.Add(1)
	c.lostRecords.Add(int64(len(b.Rows)))
	p.metrics.lostBatch(b.Stream)
	p.logger.Warn("Batch lost", "stream", b.Stream, "batch_id", b.ID,
		"records", len(b.Rows), "attempts", b.Attempts, "error", err)
}

// shutdown waits for in-flight writes, then makes one attempt for every
// remaining batch. The whole sequence shares one budget; batches not tried
// before it runs out are counted as lost.
func (p *Pipeline) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), p.budget)
	defer cancel()

	p.ingest(time.Now())
	if err := p.pool.Stop(min(p.timeout, p.budget)); err != nil {
		p.logger.Warn("Upload workers did not finish in time", "error", err)
	}

	var final []*Batch
	for _, s := range config.Streams {
		if b := p.batchers[s].Drain(); b != nil {
			p.counters[s].batches.Add(1)
			final = append(final, b)
		}
		p.updatePending(s)
	}
	final = append(final, p.retries.drain()...)

	abandoned := 0
	for _, b := range final {
		if ctx.Err() != nil {
			abandoned++
			p.lose(b, errShutdownBudgetExceeded)
			continue
		}
		if err := p.encodeBody(b); err != nil {
			p.lose(b, err)
			continue
		}
		if err := p.send(ctx, b); err != nil {
			p.counters[b.Stream].failed.Add(1)
			p.metrics.attempt(b.Stream, false)
			b.Attempts++
			p.lose(b, err)
			continue
		}
		p.succeeded(b)
	}
	p.logger.Info("Upload pipeline stopped", "final_batches", len(final), "abandoned", abandoned)
}

// Stats returns per-stream counters.
func (p *Pipeline) Stats() Stats {
	st := Stats{
		Streams:      make(map[string]StreamStats, len(p.counters)),
		RetryQueue:   p.retries.len(),
		EncodeErrors: p.encodeErrors.Load(),
		Workers:      p.pool.Stats(),
	}
	for s, c := range p.counters {
		st.Streams[s] = StreamStats{
			Records:        c.records.Load(),
			InputOverflow:  c.overflow.Load(),
			Batches:        c.batches.Load(),
			Succeeded:      c.succeeded.Load(),
			Failed:         c.failed.Load(),
			Retries:        c.retries.Load(),
			Lost:           c.lost.Load(),
			LostRecords:    c.lostRecords.Load(),
			PendingRecords: c.pendingRecords.Load(),
			PendingBytes:   c.pendingBytes.Load(),
		}
	}
	return st
}
