// Package packet decodes and encodes the racing simulator's UDP telemetry protocol.
//
// Every datagram starts with a 29-byte little-endian Header. The header's
// PacketFormat (the game year, 2024 or 2025) selects a layout table, and its
// PacketID selects the variant within that table. Decoding is pure: no I/O,
// no shared mutable state, safe for concurrent use from many source loops.
//
//	pkt, err := packet.Decode(buf)
//	if err != nil {
//	    var f *packet.DecodeFailure
//	    errors.As(err, &f) // f.Reason is truncated, unsupported_format, unknown_packet or malformed
//	}
//	switch d := pkt.Data.(type) {
//	case *packet.CarTelemetry:
//	    speed := d.Cars[pkt.Header.PlayerCarIndex].Speed
//	}
//
// Fields keep the protocol's native units and scaling: throttle and brake are
// normalized to [0,1], speeds are km/h, lap times are milliseconds.
//
// Bytes past a variant's known size are ignored. Optional trailers (lap data
// time-trial indices, telemetry MFD state) are decoded only when present.
package packet
