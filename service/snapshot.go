package service

import (
	"time"

	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/health"
	"github.com/c360/pitwall/hub"
	"github.com/c360/pitwall/mirror"
	"github.com/c360/pitwall/upload"
)

// Snapshot is the ops view of a running service: per-source packet and
// decode-failure counts, queue depths and overflow, upload outcomes.
type Snapshot struct {
	Version string                `json:"version"`
	Status  Status                `json:"status"`
	Uptime  string                `json:"uptime,omitempty"`
	At      time.Time             `json:"at"`
	Health  health.Status         `json:"health"`
	Sources []gateway.SourceStats `json:"sources"`
	Hub     hub.Stats             `json:"hub"`
	Upload  *upload.Stats         `json:"upload,omitempty"`
	Mirror  *mirror.Stats         `json:"mirror,omitempty"`
}

// Snapshot returns current counters for every component.
func (s *Service) Snapshot() Snapshot {
	now := time.Now()
	snap := Snapshot{
		Version: s.version,
		Status:  s.Status(),
		At:      now,
		Health:  s.health.AggregateHealth(systemName),
		Sources: s.gateway.Stats(),
		Hub:     s.hub.Stats(),
	}
	if started := s.startedAt.Load(); started != nil {
		snap.Uptime = now.Sub(*started).Truncate(time.Second).String()
	}
	if s.upload != nil {
		st := s.upload.Stats()
		snap.Upload = &st
	}
	if m := s.mirror.Load(); m != nil {
		st := m.Stats()
		snap.Mirror = &st
	}
	return snap
}
