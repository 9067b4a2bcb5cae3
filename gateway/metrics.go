package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pitwall/metric"
)

// Metrics holds the gateway's per-source prometheus series.
type Metrics struct {
	packetsReceived *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	recordsOut      *prometheus.CounterVec
	socketErrors    *prometheus.CounterVec
	lastActivity    *prometheus.GaugeVec
	core            *metric.Metrics
}

// newMetrics registers gateway metrics. A nil registry disables them.
func newMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      name,
			Help:      help,
		}, append([]string{"source"}, labels...))
	}

	m := &Metrics{
		packetsReceived: counter("packets_received_total", "Datagrams received per source"),
		bytesReceived:   counter("bytes_received_total", "Datagram bytes received per source"),
		decodeFailures:  counter("decode_failures_total", "Datagrams that failed to decode", "reason"),
		recordsOut:      counter("records_published_total", "Enriched records handed to publishers"),
		socketErrors:    counter("socket_errors_total", "Non-timeout socket read errors"),
		lastActivity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "last_record_timestamp_seconds",
			Help:      "Unix time of the last decoded record per source",
		}, []string{"source"}),
		core: registry.CoreMetrics(),
	}

	for name, vec := range map[string]*prometheus.CounterVec{
		"packets_received_total":  m.packetsReceived,
		"bytes_received_total":    m.bytesReceived,
		"decode_failures_total":   m.decodeFailures,
		"records_published_total": m.recordsOut,
		"socket_errors_total":     m.socketErrors,
	} {
		if err := registry.RegisterCounterVec("gateway", name, vec); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterGaugeVec("gateway", "last_record_timestamp_seconds", m.lastActivity); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) received(source string, n int) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(source).Inc()
	m.bytesReceived.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) failed(source, reason string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(source, reason).Inc()
}

func (m *Metrics) published(source string, unixSeconds float64) {
	if m == nil {
		return
	}
	m.recordsOut.WithLabelValues(source).Inc()
	m.lastActivity.WithLabelValues(source).Set(unixSeconds)
}

func (m *Metrics) socketError(source string) {
	if m == nil {
		return
	}
	m.socketErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) state(source string, s State) {
	if m == nil {
		return
	}
	m.core.RecordSourceState(source, int(s))
}
