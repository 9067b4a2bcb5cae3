package packet

import (
	stderrors "errors"
	"fmt"
	"slices"
)

// Formats lists every format year with a layout table.
func Formats() []uint16 {
	return []uint16{Format2024, Format2025}
}

// Supported reports whether format has a layout table.
func Supported(format uint16) bool {
	_, ok := layouts[format]
	return ok
}

// Decoder decodes datagrams for a fixed set of accepted formats.
// It holds no mutable state and is safe for concurrent use.
type Decoder struct {
	formats []uint16
}

var defaultDecoder = &Decoder{formats: Formats()}

// NewDecoder returns a decoder accepting the given formats, or every
// supported format when none are given. Unsupported formats are rejected.
func NewDecoder(formats ...uint16) (*Decoder, error) {
	if len(formats) == 0 {
		return defaultDecoder, nil
	}
	accepted := make([]uint16, 0, len(formats))
	for _, f := range formats {
		if !Supported(f) {
			return nil, fmt.Errorf("packet: unsupported format %d", f)
		}
		if !slices.Contains(accepted, f) {
			accepted = append(accepted, f)
		}
	}
	return &Decoder{formats: accepted}, nil
}

// Formats returns the accepted formats.
func (d *Decoder) Formats() []uint16 {
	return slices.Clone(d.formats)
}

// Decode decodes a datagram with every supported format accepted.
func Decode(b []byte) (*Packet, error) {
	return defaultDecoder.Decode(b)
}

// Decode parses the header, selects the layout for its format and decodes
// the body. Failures are always *DecodeFailure; Decode never panics on input.
func (d *Decoder) Decode(b []byte) (*Packet, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}

	table, ok := layouts[h.PacketFormat]
	if !ok || !slices.Contains(d.formats, h.PacketFormat) {
		return nil, &DecodeFailure{Reason: ReasonUnsupportedFormat, Format: h.PacketFormat, PacketID: h.PacketID}
	}

	e, ok := table[h.PacketID]
	if !ok {
		return nil, &DecodeFailure{Reason: ReasonUnknownPacket, Format: h.PacketFormat, PacketID: h.PacketID}
	}

	body := b[HeaderSize:]
	if len(body) < e.size {
		return nil, &DecodeFailure{
			Reason:   ReasonTruncated,
			Format:   h.PacketFormat,
			PacketID: h.PacketID,
			Need:     HeaderSize + e.size,
			Got:      len(b),
		}
	}

	v, err := e.decode(body)
	if err != nil {
		var f *DecodeFailure
		if stderrors.As(err, &f) {
			f.Format, f.PacketID = h.PacketFormat, h.PacketID
			if f.Need > 0 {
				f.Need += HeaderSize
				f.Got += HeaderSize
			}
			return nil, f
		}
		return nil, &DecodeFailure{Reason: ReasonMalformed, Format: h.PacketFormat, PacketID: h.PacketID, Err: err}
	}

	return &Packet{Header: h, Type: h.PacketID.String(), Data: v.(Data)}, nil
}

// Encode serializes p using the layout selected by its header. The header's
// PacketID must match the variant held in Data.
func Encode(p *Packet) ([]byte, error) {
	if p == nil || p.Data == nil {
		return nil, fmt.Errorf("packet: encode: no data")
	}
	if p.Data.PacketID() != p.Header.PacketID {
		return nil, fmt.Errorf("packet: encode: header id %s does not match %s data",
			p.Header.PacketID, p.Data.PacketID())
	}
	table, ok := layouts[p.Header.PacketFormat]
	if !ok {
		return nil, fmt.Errorf("packet: encode: unsupported format %d", p.Header.PacketFormat)
	}
	e, ok := table[p.Header.PacketID]
	if !ok {
		return nil, fmt.Errorf("packet: encode: %s not defined for format %d", p.Header.PacketID, p.Header.PacketFormat)
	}

	b, err := p.Header.AppendBinary(make([]byte, 0, HeaderSize+e.size))
	if err != nil {
		return nil, fmt.Errorf("packet: encode header: %w", err)
	}
	b, err = e.encode(b, p.Data)
	if err != nil {
		return nil, fmt.Errorf("packet: encode %s: %w", p.Header.PacketID, err)
	}
	return b, nil
}

// BodySize returns the minimum body size of id in format, or false when the
// format does not define id.
func BodySize(format uint16, id ID) (int, bool) {
	e, ok := layouts[format][id]
	return e.size, ok
}
