package gateway

import (
	"time"

	"github.com/c360/pitwall/packet"
)

// Kind discriminates Record payloads.
type Kind string

const (
	// KindPacket records carry a decoded datagram.
	KindPacket Kind = "packet"
	// KindStatus records carry a liveness transition.
	KindStatus Kind = "status"
	// KindSession records carry a SessionSummary.
	KindSession Kind = "session"
)

// Record is an enriched gateway output. Records are shared between
// publishers and must be treated as read-only once published.
type Record struct {
	Kind             Kind      `json:"kind"`
	SourceID         string    `json:"source_id"`
	Label            string    `json:"label,omitempty"`
	Driver           string    `json:"driver,omitempty"`
	Device           string    `json:"device,omitempty"`
	ReceivedAt       time.Time `json:"received_at"`
	TimestampGateway int64     `json:"timestamp_gateway"`

	Packet  *packet.Packet  `json:"packet,omitempty"`
	Status  *StatusChange   `json:"status,omitempty"`
	Session *SessionSummary `json:"session,omitempty"`
}

// Type names the payload: the packet type for packet records, the kind
// otherwise.
func (r *Record) Type() string {
	if r.Kind == KindPacket && r.Packet != nil {
		return r.Packet.Type
	}
	return string(r.Kind)
}

// StatusChange is a liveness transition of one source.
type StatusChange struct {
	State        State     `json:"state"`
	Previous     State     `json:"previous"`
	LastRecordAt time.Time `json:"last_record_at,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Publisher receives every record the gateway produces. Publish is called
// from source loops and must return without blocking.
type Publisher interface {
	Publish(rec *Record)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(rec *Record)

// Publish calls f(rec).
func (f PublisherFunc) Publish(rec *Record) { f(rec) }
