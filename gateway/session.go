package gateway

import (
	"time"

	"github.com/c360/pitwall/packet"
)

// SessionContext is the running state of one source's current session.
// It is replaced, never merged, when the session identifier changes.
// Zero durations and speeds mean "not yet observed".
type SessionContext struct {
	SessionUID   uint64
	StartedAt    time.Time
	LastRecordAt time.Time
	Packets      int64

	TrackID     int8
	HasTrack    bool
	SessionType uint8
	TotalLaps   uint8

	CurrentLap  uint8
	LastLap     time.Duration
	BestLap     time.Duration
	BestSector1 time.Duration
	BestSector2 time.Duration
	TopSpeed    uint16

	Warnings   uint8
	Penalties  uint8
	Collisions int
}

// NewSessionContext returns an empty context for session uid.
func NewSessionContext(uid uint64, at time.Time) *SessionContext {
	return &SessionContext{SessionUID: uid, StartedAt: at, LastRecordAt: at}
}

// Track returns the context to use for a record of session uid. When cur is
// nil or belongs to another session a fresh context is returned and started
// is true.
func Track(cur *SessionContext, uid uint64, at time.Time) (ctx *SessionContext, started bool) {
	if cur == nil || cur.SessionUID != uid {
		return NewSessionContext(uid, at), true
	}
	return cur, false
}

// ObserveLap records a completed lap time and reports whether it became the
// new best. Only strictly faster, non-zero times replace the best.
func (s *SessionContext) ObserveLap(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	s.LastLap = d
	return improve(&s.BestLap, d)
}

// ObserveSectors records sector times; zero values are ignored.
func (s *SessionContext) ObserveSectors(s1, s2 time.Duration) {
	if s1 > 0 {
		improve(&s.BestSector1, s1)
	}
	if s2 > 0 {
		improve(&s.BestSector2, s2)
	}
}

// ObserveSpeed raises the top speed when v exceeds it.
func (s *SessionContext) ObserveSpeed(v uint16) {
	if v > s.TopSpeed {
		s.TopSpeed = v
	}
}

func improve(best *time.Duration, d time.Duration) bool {
	if *best == 0 || d < *best {
		*best = d
		return true
	}
	return false
}

// Apply folds a decoded packet into the context and reports whether the
// player's lap counter advanced. Fields are taken from the player car.
func (s *SessionContext) Apply(p *packet.Packet, at time.Time) (lapCompleted bool) {
	s.Packets++
	s.LastRecordAt = at

	car := int(p.Header.PlayerCarIndex)
	if car >= packet.NumCars {
		car = 0
	}

	switch d := p.Data.(type) {
	case *packet.Session:
		s.TrackID = d.TrackID
		s.HasTrack = true
		s.SessionType = d.SessionType
		s.TotalLaps = d.TotalLaps

	case *packet.Laps:
		lap := &d.Cars[car]
		switch {
		case lap.CurrentLapNum > s.CurrentLap:
			if s.CurrentLap != 0 {
				s.ObserveLap(lap.LastLapTime())
				lapCompleted = true
			}
			s.CurrentLap = lap.CurrentLapNum
		case lap.CurrentLapNum < s.CurrentLap:
			// Flashback or restart inside the same session: resync without
			// counting a completion.
			s.CurrentLap = lap.CurrentLapNum
		}
		s.ObserveSectors(lap.Sector1Time(), lap.Sector2Time())
		s.Warnings = lap.TotalWarnings
		s.Penalties = lap.Penalties

	case *packet.CarTelemetry:
		s.ObserveSpeed(d.Cars[car].Speed)

	case *packet.Event:
		if d.Kind == packet.EventCollision {
			s.Collisions++
		}
	}
	return lapCompleted
}

// SessionSummary is an immutable view of a SessionContext.
type SessionSummary struct {
	SessionUID     uint64    `json:"session_uid,string"`
	StartedAt      time.Time `json:"started_at"`
	LastRecordAt   time.Time `json:"last_record_at"`
	Packets        int64     `json:"packets"`
	TrackID        *int8     `json:"track_id,omitempty"`
	TrackName      string    `json:"track_name,omitempty"`
	SessionType    string    `json:"session_type,omitempty"`
	TotalLaps      uint8     `json:"total_laps,omitempty"`
	CurrentLap     uint8     `json:"current_lap"`
	LastLapMS      int64     `json:"last_lap_ms,omitempty"`
	BestLapMS      int64     `json:"best_lap_ms,omitempty"`
	BestSector1MS  int64     `json:"best_sector1_ms,omitempty"`
	BestSector2MS  int64     `json:"best_sector2_ms,omitempty"`
	TopSpeedKPH    uint16    `json:"top_speed_kph,omitempty"`
	Warnings       uint8     `json:"warnings"`
	PenaltySeconds uint8     `json:"penalty_seconds"`
	Collisions     int       `json:"collisions"`
}

// Summary snapshots the context.
func (s *SessionContext) Summary() *SessionSummary {
	sum := &SessionSummary{
		SessionUID:     s.SessionUID,
		StartedAt:      s.StartedAt,
		LastRecordAt:   s.LastRecordAt,
		Packets:        s.Packets,
		TotalLaps:      s.TotalLaps,
		CurrentLap:     s.CurrentLap,
		LastLapMS:      s.LastLap.Milliseconds(),
		BestLapMS:      s.BestLap.Milliseconds(),
		BestSector1MS:  s.BestSector1.Milliseconds(),
		BestSector2MS:  s.BestSector2.Milliseconds(),
		TopSpeedKPH:    s.TopSpeed,
		Warnings:       s.Warnings,
		PenaltySeconds: s.Penalties,
		Collisions:     s.Collisions,
	}
	if s.HasTrack {
		id := s.TrackID
		sum.TrackID = &id
		sum.TrackName = packet.TrackName(s.TrackID)
		sum.SessionType = packet.SessionTypeName(s.SessionType)
	}
	return sum
}
