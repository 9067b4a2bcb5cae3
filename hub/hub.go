package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/metric"
	"github.com/c360/pitwall/pkg/buffer"
)

// Deps are the hub's optional collaborators.
type Deps struct {
	Logger   *slog.Logger
	Registry *metric.MetricsRegistry
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Subscribers     int                            `json:"subscribers"`
	Inputs          map[string]buffer.StatsSummary `json:"inputs"`
	SubscriberDrops int64                          `json:"subscriber_drops"`
	Records         int64                          `json:"records_sent"`
	Snapshots       int64                          `json:"snapshots_sent"`
}

// Hub distributes gateway records to subscribers on a fixed tick.
type Hub struct {
	logger    *slog.Logger
	metrics   *Metrics
	tick      time.Duration
	threshold int
	queueSize int

	input *buffer.Keyed[*gateway.Record]

	mu          sync.Mutex
	subscribers map[string]*Subscriber
	views       map[string]*sourceView
	sourceOrder []string
	closed      bool

	drops     atomic.Int64
	records   atomic.Int64
	snapshots atomic.Int64
}

// New creates a hub. Call Run to start the tick.
func New(cfg config.HubConfig, deps Deps) (*Hub, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Tick <= 0 || cfg.InputCapacity <= 0 || cfg.SubscriberQueue <= 0 || cfg.CoalesceThreshold <= 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("tick, capacities and threshold must be positive"), "hub", "New", "config check")
	}
	m, err := newMetrics(deps.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "hub", "New", "metrics registration")
	}

	h := &Hub{
		logger:      deps.Logger.With("component", "hub"),
		metrics:     m,
		tick:        cfg.Tick.Std(),
		threshold:   cfg.CoalesceThreshold,
		queueSize:   cfg.SubscriberQueue,
		subscribers: make(map[string]*Subscriber),
		views:       make(map[string]*sourceView),
	}
	h.input = buffer.NewKeyed[*gateway.Record](cfg.InputCapacity, func(source string, _ *gateway.Record) {
		h.metrics.overflow(source)
	})
	return h, nil
}

// Publish queues rec for the next tick. It never blocks; when the source's
// queue is full its oldest record is evicted.
func (h *Hub) Publish(rec *gateway.Record) {
	h.input.Write(rec.SourceID, rec)
}

// Run drives the output tick until ctx is done, then closes every
// subscriber.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	defer h.closeAll()

	h.logger.Info("Hub started", "tick", h.tick, "coalesce_threshold", h.threshold)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.flush()
		}
	}
}

// flush drains the input queue and fans each source's records out.
func (h *Hub) flush() {
	now := time.Now()
	h.input.Drain(h.input.PerKey(), func(source string, recs []*gateway.Record) {
		h.mu.Lock()
		defer h.mu.Unlock()

		view := h.view(source)
		for _, rec := range recs {
			view.apply(rec)
		}

		if len(recs) <= h.threshold {
			for _, rec := range recs {
				h.fanout(recordMessage(rec))
			}
			return
		}

		for _, rec := range recs {
			if rec.Kind == gateway.KindStatus {
				h.fanout(recordMessage(rec))
			}
		}
		h.fanout(view.snapshot(len(recs), now))
	})
}

func (h *Hub) view(source string) *sourceView {
	v, ok := h.views[source]
	if !ok {
		v = newSourceView(source)
		h.views[source] = v
		h.sourceOrder = append(h.sourceOrder, source)
	}
	return v
}

// fanout enqueues m for every matching subscriber. Caller holds h.mu.
func (h *Hub) fanout(m *Message) {
	if m.Type == TypeSnapshot {
		h.snapshots.Add(1)
	} else {
		h.records.Add(1)
	}
	h.metrics.sent(m.Type)
	for _, sub := range h.subscribers {
		if sub.filter.Match(m.SourceID) {
			sub.enqueue(m)
		}
	}
}

// Subscribe registers a subscriber. Its queue is seeded with a snapshot of
// every ACTIVE source the filter matches.
func (h *Hub) Subscribe(filter Filter) (*Subscriber, error) {
	sub, err := newSubscriber(filter, h.queueSize, func() {
		h.drops.Add(1)
		h.metrics.dropped()
	})
	if err != nil {
		return nil, errors.Wrap(err, "hub", "Subscribe", "queue creation")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.close()
		return nil, errors.WrapInvalid(errors.ErrAlreadyStopped, "hub", "Subscribe", "hub stopped")
	}
	h.seed(sub)
	h.subscribers[sub.ID] = sub
	h.metrics.setSubscribers(len(h.subscribers))
	h.logger.Debug("Subscriber joined", "subscriber", sub.ID, "filter", string(filter))
	return sub, nil
}

// SetFilter changes a subscriber's filter and seeds snapshots for the newly
// matched ACTIVE sources.
func (h *Hub) SetFilter(sub *Subscriber, filter Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	sub.filter = filter
	h.seed(sub)
}

// seed queues join snapshots. Caller holds h.mu.
func (h *Hub) seed(sub *Subscriber) {
	now := time.Now()
	for _, id := range h.sourceOrder {
		v := h.views[id]
		if v.state == gateway.StateActive && sub.filter.Match(id) {
			sub.enqueue(v.snapshot(0, now))
		}
	}
}

// Unsubscribe removes sub and closes its queue immediately.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub.ID)
	n := len(h.subscribers)
	h.mu.Unlock()

	sub.close()
	h.metrics.setSubscribers(n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subscribers {
		sub.close()
		delete(h.subscribers, id)
	}
	h.metrics.setSubscribers(0)
	h.logger.Info("Hub stopped")
}

// ActiveSources lists sources currently ACTIVE as seen by the hub.
func (h *Hub) ActiveSources() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, id := range h.sourceOrder {
		if h.views[id].state == gateway.StateActive {
			out = append(out, id)
		}
	}
	return out
}

// Stats returns hub counters and per-source input queue statistics.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	subs := len(h.subscribers)
	h.mu.Unlock()

	return Stats{
		Subscribers:     subs,
		Inputs:          h.input.Summaries(),
		SubscriberDrops: h.drops.Load(),
		Records:         h.records.Load(),
		Snapshots:       h.snapshots.Load(),
	}
}
