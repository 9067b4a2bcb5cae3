package packet

import (
	"encoding/binary"
)

// Supported protocol formats.
const (
	Format2024 uint16 = 2024
	Format2025 uint16 = 2025
)

// HeaderSize is the encoded size of Header.
const HeaderSize = 29

// Header is the fixed prefix of every datagram.
type Header struct {
	PacketFormat            uint16  `json:"packet_format"`
	GameYear                uint8   `json:"game_year"`
	GameMajorVersion        uint8   `json:"game_major_version"`
	GameMinorVersion        uint8   `json:"game_minor_version"`
	PacketVersion           uint8   `json:"packet_version"`
	PacketID                ID      `json:"packet_id"`
	SessionUID              uint64  `json:"session_uid,string"`
	SessionTime             float32 `json:"session_time"`
	FrameIdentifier         uint32  `json:"frame_identifier"`
	OverallFrameIdentifier  uint32  `json:"overall_frame_identifier"`
	PlayerCarIndex          uint8   `json:"player_car_index"`
	SecondaryPlayerCarIndex uint8   `json:"secondary_player_car_index"`
}

// ParseHeader decodes the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, &DecodeFailure{Reason: ReasonTruncated, Need: HeaderSize, Got: len(b)}
	}
	if _, err := binary.Decode(b[:HeaderSize], binary.LittleEndian, &h); err != nil {
		return h, &DecodeFailure{Reason: ReasonMalformed, Err: err}
	}
	return h, nil
}

// MarshalBinary encodes the header in wire order.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HeaderSize))
}

// AppendBinary appends the encoded header to b.
func (h Header) AppendBinary(b []byte) ([]byte, error) {
	return binary.Append(b, binary.LittleEndian, &h)
}
