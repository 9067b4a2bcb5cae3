package upload

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pitwall/metric"
)

// Metrics holds the upload pipeline's prometheus series.
type Metrics struct {
	batches    *prometheus.CounterVec
	retries    *prometheus.CounterVec
	lost       *prometheus.CounterVec
	overflow   *prometheus.CounterVec
	batchBytes *prometheus.HistogramVec
}

func newMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "upload",
			Name:      name,
			Help:      help,
		}, labels)
	}
	m := &Metrics{
		batches:  counter("batches_total", "Batch write attempts by outcome", "stream", "result"),
		retries:  counter("retries_total", "Batches scheduled for another attempt", "stream"),
		lost:     counter("lost_batches_total", "Batches dropped after exhausting attempts", "stream"),
		overflow: counter("input_overflow_total", "Records evicted before batching", "stream"),
		batchBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "upload",
			Name:      "batch_bytes",
			Help:      "Encoded batch body size",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"stream"}),
	}

	for name, vec := range map[string]*prometheus.CounterVec{
		"batches_total":        m.batches,
		"retries_total":        m.retries,
		"lost_batches_total":   m.lost,
		"input_overflow_total": m.overflow,
	} {
		if err := registry.RegisterCounterVec("upload", name, vec); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterHistogramVec("upload", "batch_bytes", m.batchBytes); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) attempt(stream string, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.batches.WithLabelValues(stream, result).Inc()
}

func (m *Metrics) retried(stream string) {
	if m != nil {
		m.retries.WithLabelValues(stream).Inc()
	}
}

func (m *Metrics) lostBatch(stream string) {
	if m != nil {
		m.lost.WithLabelValues(stream).Inc()
	}
}

func (m *Metrics) overflowed(stream string) {
	if m != nil {
		m.overflow.WithLabelValues(stream).Inc()
	}
}

func (m *Metrics) bodySize(stream string, n int) {
	if m != nil {
		m.batchBytes.WithLabelValues(stream).Observe(float64(n))
	}
}
