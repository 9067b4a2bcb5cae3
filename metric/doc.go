// Package metric provides the Prometheus registry and ops HTTP server for pitwall.
//
// Components receive a *MetricsRegistry and register their own counters
// under a service name. A nil registry means metrics are disabled for that
// component; every component checks for nil before creating collectors.
//
// The Server exposes:
//
//   - /metrics   Prometheus exposition (OpenMetrics enabled)
//   - /health    per-component health, 503 when any component is unhealthy
//   - /snapshot  the JSON counter snapshot for external ops dashboards
package metric
