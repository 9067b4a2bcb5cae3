package upload

import (
	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/packet"
)

// StreamOf routes a record to its upload stream.
func StreamOf(rec *gateway.Record) string {
	switch rec.Kind {
	case gateway.KindSession:
		return config.StreamSessions
	case gateway.KindStatus:
		return config.StreamEvents
	}
	if rec.Packet == nil {
		return config.StreamTelemetry
	}
	switch rec.Packet.Header.PacketID {
	case packet.IDEvent:
		return config.StreamEvents
	case packet.IDLapData, packet.IDSessionHistory, packet.IDFinalClassification, packet.IDLapPositions:
		return config.StreamLaps
	case packet.IDSession, packet.IDParticipants, packet.IDLobbyInfo:
		return config.StreamSessions
	}
	return config.StreamTelemetry
}
