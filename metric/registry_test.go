package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/errors"
)

func gatherNames(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	require.NotNil(t, registry.CoreMetrics())

	registry.CoreMetrics().RecordComponentStatus("gateway", StatusRunning)
	registry.CoreMetrics().RecordSourceState("RIG_A", 1)
	registry.CoreMetrics().RecordBuildInfo("test")

	names := gatherNames(t, registry)
	assert.True(t, names["pitwall_component_status"])
	assert.True(t, names["pitwall_source_state"])
	assert.True(t, names["pitwall_build_info"])
	assert.True(t, names["go_goroutines"])
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "A test gauge"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "A test histogram"})
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "v"}, []string{"a"})
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "v"}, []string{"a"})

	require.NoError(t, registry.RegisterCounter("svc", "counter", counter))
	require.NoError(t, registry.RegisterGauge("svc", "gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("svc", "histogram", histogram))
	require.NoError(t, registry.RegisterCounterVec("svc", "counter_vec", counterVec))
	require.NoError(t, registry.RegisterGaugeVec("svc", "gauge_vec", gaugeVec))

	counter.Inc()
	gauge.Set(3)
	histogram.Observe(1)
	counterVec.WithLabelValues("x").Inc()
	gaugeVec.WithLabelValues("x").Set(1)

	names := gatherNames(t, registry)
	for _, name := range []string{"test_counter", "test_gauge", "test_histogram", "test_counter_vec", "test_gauge_vec"} {
		assert.True(t, names[name], name)
	}
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "h"})
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "h"})

	require.NoError(t, registry.RegisterCounter("svc", "dup", c1))

	err := registry.RegisterCounter("svc", "dup", c2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = registry.RegisterCounter("other", "dup", c2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err), "prometheus conflict is reported as invalid")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "h"})

	require.NoError(t, registry.RegisterCounter("svc", "gone", counter))
	assert.True(t, registry.Unregister("svc", "gone"))
	assert.False(t, registry.Unregister("svc", "gone"))

	// Name is free again
	require.NoError(t, registry.RegisterCounter("svc", "gone", counter))
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	healthy := true
	server := NewServer(":0", "", registry,
		WithHealth(func() (any, bool) { return map[string]bool{"ok": healthy}, healthy }),
		WithSnapshot(func() (any, bool) { return map[string]int{"packets": 42}, true }),
	)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")

	status, body = get("/snapshot")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"packets":42}`, body)

	status, _ = get("/health")
	assert.Equal(t, http.StatusOK, status)

	healthy = false
	status, body = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"ok":false}`, body)
}

func TestServer_StartStop(t *testing.T) {
	server := NewServer("127.0.0.1:0", "/metrics", NewMetricsRegistry())

	require.NoError(t, server.Start())
	assert.Error(t, server.Start(), "second start must fail")

	resp, err := http.Get("http://" + server.Address() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop(time.Second))
	require.NoError(t, server.Stop(time.Second))
}
