package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Component status values reported through ComponentStatus
const (
	StatusStopped = 0
	StatusRunning = 1
	StatusFailed  = 2
)

// Metrics contains process-level metrics shared by every component
type Metrics struct {
	ComponentStatus *prometheus.GaugeVec
	SourceState     *prometheus.GaugeVec
	BuildInfo       *prometheus.GaugeVec
}

// NewMetrics creates the core metric set
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=running, 2=failed)",
			},
			[]string{"component"},
		),
		SourceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "state",
				Help:      "Source liveness (0=inactive, 1=active, 2=stale, 3=failed)",
			},
			[]string{"source"},
		),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "build_info",
				Help:      "Build information, value is always 1",
			},
			[]string{"version"},
		),
	}
}

// RecordComponentStatus updates the status gauge for a component
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordSourceState updates the liveness gauge for a source
func (c *Metrics) RecordSourceState(source string, state int) {
	c.SourceState.WithLabelValues(source).Set(float64(state))
}

// RecordBuildInfo publishes the running version
func (c *Metrics) RecordBuildInfo(version string) {
	c.BuildInfo.WithLabelValues(version).Set(1)
}
