package packet

import (
	"fmt"

	"github.com/c360/pitwall/errors"
)

// Reason classifies why a datagram could not be decoded.
type Reason string

const (
	ReasonTruncated         Reason = "truncated"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonUnknownPacket     Reason = "unknown_packet"
	ReasonMalformed         Reason = "malformed"
)

// DecodeFailure describes a datagram that was dropped. It unwraps to
// errors.ErrInvalidData so callers can classify it without importing packet.
type DecodeFailure struct {
	Reason   Reason
	Format   uint16
	PacketID ID
	Need     int
	Got      int
	Err      error
}

func (f *DecodeFailure) Error() string {
	switch f.Reason {
	case ReasonTruncated:
		if f.Format == 0 {
			return fmt.Sprintf("packet: truncated header: need %d bytes, got %d", f.Need, f.Got)
		}
		return fmt.Sprintf("packet: truncated %s (format %d): need %d bytes, got %d", f.PacketID, f.Format, f.Need, f.Got)
	case ReasonUnsupportedFormat:
		return fmt.Sprintf("packet: unsupported format %d", f.Format)
	case ReasonUnknownPacket:
		return fmt.Sprintf("packet: unknown packet id %d for format %d", uint8(f.PacketID), f.Format)
	default:
		if f.Err != nil {
			return fmt.Sprintf("packet: malformed %s: %v", f.PacketID, f.Err)
		}
		return fmt.Sprintf("packet: malformed %s", f.PacketID)
	}
}

// Unwrap exposes the invalid-data sentinel and any underlying cause.
func (f *DecodeFailure) Unwrap() []error {
	if f.Err != nil {
		return []error{errors.ErrInvalidData, f.Err}
	}
	return []error{errors.ErrInvalidData}
}
