package mirror

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pitwall/metric"
)

// Metrics holds the mirror's prometheus series.
type Metrics struct {
	published *prometheus.CounterVec
	dropped   prometheus.Counter
	failed    prometheus.Counter
}

func newMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: metric.Namespace, Subsystem: "mirror", Name: name, Help: help}
	}
	m := &Metrics{
		published: prometheus.NewCounterVec(opts("published_total", "Records published to NATS"), []string{"source"}),
		dropped:   prometheus.NewCounter(opts("dropped_total", "Records evicted before publishing")),
		failed:    prometheus.NewCounter(opts("failures_total", "Records that failed to publish")),
	}
	if err := registry.RegisterCounterVec("mirror", "published_total", m.published); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("mirror", "dropped_total", m.dropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("mirror", "failures_total", m.failed); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) publish(source string) {
	if m != nil {
		m.published.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) drop() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) fail() {
	if m != nil {
		m.failed.Inc()
	}
}
