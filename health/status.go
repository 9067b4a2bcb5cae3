// Package health tracks per-source and per-component health for the ops surface.
package health

import (
	"regexp"
	"strings"
	"time"
)

// Health levels.
const (
	Healthy   = "healthy"
	Degraded  = "degraded"
	Unhealthy = "unhealthy"
)

var (
	urlRegex        = regexp.MustCompile(`(?:https?|nats|wss?)://[^\s]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(?::\d{1,5})?\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|bearer|secret)[^a-zA-Z]*[:= ][^,\s}]+`)
)

// Status is the health of one source or component.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries counters shown next to a status.
type Metrics struct {
	Uptime          time.Duration `json:"uptime"`
	ErrorCount      int64         `json:"error_count"`
	PacketsReceived int64         `json:"packets_received,omitempty"`
	LastActivity    time.Time     `json:"last_activity,omitempty"`
}

func (s Status) IsHealthy() bool   { return s.Status == Healthy }
func (s Status) IsDegraded() bool  { return s.Status == Degraded }
func (s Status) IsUnhealthy() bool { return s.Status == Unhealthy }

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// FromError builds an unhealthy status whose message is err with addresses
// and credentials masked.
func FromError(name string, err error) Status {
	msg := "unknown error"
	if err != nil {
		msg = Sanitize(err.Error())
	}
	return NewUnhealthy(name, msg)
}

// Sanitize masks URLs, IP addresses and credentials in s.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = urlRegex.ReplaceAllString(s, "[URL]")
	s = ipAddrRegex.ReplaceAllString(s, "[IP]")
	lower := strings.ToLower(s)
	if strings.Contains(lower, "token") || strings.Contains(lower, "bearer") ||
		strings.Contains(lower, "password") || strings.Contains(lower, "secret") {
		s = credentialRegex.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}
