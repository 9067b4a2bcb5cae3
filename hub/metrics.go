package hub

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pitwall/metric"
)

// Metrics holds the hub's prometheus series.
type Metrics struct {
	subscribers     prometheus.Gauge
	inputOverflow   *prometheus.CounterVec
	subscriberDrops prometheus.Counter
	messages        *prometheus.CounterVec
	connections     prometheus.Counter
}

func newMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: metric.Namespace, Subsystem: "hub", Name: name, Help: help}
	}

	m := &Metrics{
		subscribers:     prometheus.NewGauge(prometheus.GaugeOpts(opts("subscribers", "Connected subscribers"))),
		inputOverflow:   prometheus.NewCounterVec(prometheus.CounterOpts(opts("input_overflow_total", "Records evicted from the input queue")), []string{"source"}),
		subscriberDrops: prometheus.NewCounter(prometheus.CounterOpts(opts("subscriber_drops_total", "Messages evicted from subscriber queues"))),
		messages:        prometheus.NewCounterVec(prometheus.CounterOpts(opts("messages_total", "Messages fanned out by type")), []string{"type"}),
		connections:     prometheus.NewCounter(prometheus.CounterOpts(opts("connections_total", "WebSocket connections accepted"))),
	}

	if err := registry.RegisterGauge("hub", "subscribers", m.subscribers); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("hub", "input_overflow_total", m.inputOverflow); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("hub", "subscriber_drops_total", m.subscriberDrops); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("hub", "messages_total", m.messages); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("hub", "connections_total", m.connections); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) overflow(source string) {
	if m != nil {
		m.inputOverflow.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.subscriberDrops.Inc()
	}
}

func (m *Metrics) sent(kind string) {
	if m != nil {
		m.messages.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) setSubscribers(n int) {
	if m != nil {
		m.subscribers.Set(float64(n))
	}
}

func (m *Metrics) connected() {
	if m != nil {
		m.connections.Inc()
	}
}
