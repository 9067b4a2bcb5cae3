package hub

import (
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/c360/pitwall/gateway"
)

// Message types delivered to subscribers.
const (
	TypeRecord   = "record"
	TypeSnapshot = "snapshot"
)

// Message is one delivery. Messages are shared across subscribers and must
// not be modified.
type Message struct {
	Type     string          `json:"type"`
	SourceID string          `json:"source_id"`
	Record   *gateway.Record `json:"record,omitempty"`
	Snapshot *Snapshot       `json:"snapshot,omitempty"`

	once    sync.Once
	encoded []byte
	err     error
}

// JSON returns the message encoding, computed once.
func (m *Message) JSON() ([]byte, error) {
	m.once.Do(func() {
		m.encoded, m.err = json.Marshal(m)
	})
	return m.encoded, m.err
}

func recordMessage(rec *gateway.Record) *Message {
	return &Message{Type: TypeRecord, SourceID: rec.SourceID, Record: rec}
}

// Snapshot is the latest known state of one source.
type Snapshot struct {
	SourceID string                     `json:"source_id"`
	Label    string                     `json:"label,omitempty"`
	Driver   string                     `json:"driver,omitempty"`
	Device   string                     `json:"device,omitempty"`
	State    gateway.State              `json:"state"`
	Session  *gateway.SessionSummary    `json:"session,omitempty"`
	Latest   map[string]*gateway.Record `json:"latest"`
	// Coalesced is the number of records folded into this snapshot; zero
	// for join snapshots.
	Coalesced int       `json:"coalesced,omitempty"`
	At        time.Time `json:"at"`
}

// sourceView accumulates the latest state of one source. Owned by the hub
// under its mutex.
type sourceView struct {
	id      string
	label   string
	driver  string
	device  string
	state   gateway.State
	session *gateway.SessionSummary
	latest  map[string]*gateway.Record
}

func newSourceView(id string) *sourceView {
	return &sourceView{id: id, latest: make(map[string]*gateway.Record)}
}

func (v *sourceView) apply(rec *gateway.Record) {
	v.label, v.driver, v.device = rec.Label, rec.Driver, rec.Device
	switch rec.Kind {
	case gateway.KindStatus:
		v.state = rec.Status.State
	case gateway.KindSession:
		v.session = rec.Session
	case gateway.KindPacket:
		// a record implies liveness even if its status change was evicted
		if v.state != gateway.StateActive {
			v.state = gateway.StateActive
		}
		v.latest[rec.Type()] = rec
	}
}

func (v *sourceView) snapshot(coalesced int, at time.Time) *Message {
	return &Message{
		Type:     TypeSnapshot,
		SourceID: v.id,
		Snapshot: &Snapshot{
			SourceID:  v.id,
			Label:     v.label,
			Driver:    v.driver,
			Device:    v.device,
			State:     v.state,
			Session:   v.session,
			Latest:    maps.Clone(v.latest),
			Coalesced: coalesced,
			At:        at,
		},
	}
}
