package packet

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/errors"
)

func testHeader(format uint16, id ID) Header {
	return Header{
		PacketFormat:            format,
		GameYear:                uint8(format % 100),
		GameMajorVersion:        1,
		GameMinorVersion:        4,
		PacketVersion:           1,
		PacketID:                id,
		SessionUID:              0xDEADBEEFCAFEF00D,
		SessionTime:             12.5,
		FrameIdentifier:         420,
		OverallFrameIdentifier:  421,
		PlayerCarIndex:          0,
		SecondaryPlayerCarIndex: 255,
	}
}

func rawPacket(t *testing.T, format uint16, id ID, bodyLen int) []byte {
	t.Helper()
	b, err := testHeader(format, id).MarshalBinary()
	require.NoError(t, err)
	return append(b, make([]byte, bodyLen)...)
}

func requireFailure(t *testing.T, err error, reason Reason) *DecodeFailure {
	t.Helper()
	require.Error(t, err)
	var f *DecodeFailure
	require.True(t, stderrors.As(err, &f), "expected *DecodeFailure, got %T", err)
	assert.Equal(t, reason, f.Reason)
	assert.True(t, errors.IsInvalid(err))
	return f
}

func TestHeader_RoundTrip(t *testing.T) {
	for _, format := range Formats() {
		h := testHeader(format, IDCarTelemetry)
		b, err := h.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, b, HeaderSize)

		parsed, err := ParseHeader(b)
		require.NoError(t, err)
		assert.Equal(t, h, parsed)

		again, err := parsed.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, b, again)
	}
}

func TestDecode_HeaderBytesPreserved(t *testing.T) {
	for _, format := range Formats() {
		for id := range layouts[format] {
			size, _ := BodySize(format, id)
			raw := rawPacket(t, format, id, size)

			p, err := Decode(raw)
			require.NoError(t, err, "format %d id %s", format, id)

			hb, err := p.Header.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, raw[:HeaderSize], hb, "format %d id %s", format, id)
			assert.Equal(t, id.String(), p.Type)
			assert.Equal(t, id, p.Data.PacketID())
		}
	}
}

func TestDecode_Truncated(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		for n := 0; n < HeaderSize; n++ {
			_, err := Decode(make([]byte, n))
			f := requireFailure(t, err, ReasonTruncated)
			assert.Equal(t, HeaderSize, f.Need)
			assert.Equal(t, n, f.Got)
		}
	})

	t.Run("short body for every packet", func(t *testing.T) {
		for _, format := range Formats() {
			for id := range layouts[format] {
				size, _ := BodySize(format, id)
				require.Positive(t, size)
				for _, cut := range []int{0, size / 2, size - 1} {
					_, err := Decode(rawPacket(t, format, id, cut))
					f := requireFailure(t, err, ReasonTruncated)
					assert.Equal(t, HeaderSize+size, f.Need)
					assert.Equal(t, HeaderSize+cut, f.Got)
					assert.Equal(t, format, f.Format)
					assert.Equal(t, id, f.PacketID)
				}
			}
		}
	})
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    []byte
		reason Reason
	}{
		{"unsupported format", rawPacket(t, 2023, IDMotion, 2000), ReasonUnsupportedFormat},
		{"unknown packet id", rawPacket(t, Format2025, ID(99), 2000), ReasonUnknownPacket},
		{"lap positions in 2024", rawPacket(t, Format2024, IDLapPositions, 2000), ReasonUnknownPacket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.raw)
			assert.Nil(t, p)
			requireFailure(t, err, tt.reason)
		})
	}
}

func TestDecoder_AcceptedFormats(t *testing.T) {
	only2024, err := NewDecoder(Format2024)
	require.NoError(t, err)
	assert.Equal(t, []uint16{Format2024}, only2024.Formats())

	size, _ := BodySize(Format2025, IDMotion)
	_, err = only2024.Decode(rawPacket(t, Format2025, IDMotion, size))
	requireFailure(t, err, ReasonUnsupportedFormat)

	size, _ = BodySize(Format2024, IDMotion)
	_, err = only2024.Decode(rawPacket(t, Format2024, IDMotion, size))
	assert.NoError(t, err)

	_, err = NewDecoder(Format2024, 2031)
	assert.Error(t, err)

	all, err := NewDecoder()
	require.NoError(t, err)
	assert.ElementsMatch(t, Formats(), all.Formats())
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	size, _ := BodySize(Format2025, IDCarStatus)
	p, err := Decode(rawPacket(t, Format2025, IDCarStatus, size+64))
	require.NoError(t, err)
	assert.IsType(t, &CarStatus{}, p.Data)
}

func TestBodySizes(t *testing.T) {
	tests := []struct {
		format uint16
		id     ID
		size   int
	}{
		{Format2024, IDMotion, 1320},
		{Format2024, IDSession, 724},
		{Format2025, IDSession, 724},
		{Format2024, IDLapData, 1254},
		{Format2024, IDParticipants, 1321},
		{Format2025, IDParticipants, 1255},
		{Format2024, IDCarSetups, 1104},
		{Format2024, IDCarTelemetry, 1320},
		{Format2024, IDCarStatus, 1210},
		{Format2024, IDFinalClassification, 991},
		{Format2025, IDFinalClassification, 1013},
		{Format2024, IDLobbyInfo, 1277},
		{Format2025, IDLobbyInfo, 925},
		{Format2024, IDCarDamage, 924},
		{Format2025, IDCarDamage, 1012},
		{Format2024, IDSessionHistory, 1431},
		{Format2024, IDTyreSets, 202},
		{Format2024, IDMotionEx, 208},
		{Format2025, IDMotionEx, 244},
		{Format2024, IDTimeTrial, 72},
		{Format2025, IDLapPositions, 1102},
		{Format2025, IDEvent, 4},
	}
	for _, tt := range tests {
		size, ok := BodySize(tt.format, tt.id)
		require.True(t, ok, "%d %s", tt.format, tt.id)
		assert.Equal(t, tt.size, size, "%d %s", tt.format, tt.id)
	}
}

func TestCarTelemetry_RoundTrip(t *testing.T) {
	data := &CarTelemetry{}
	data.Cars[0].Speed = 287
	data.Cars[0].Gear = 7
	data.Cars[0].Throttle = 0.875
	data.Cars[0].Brake = 0
	data.Cars[0].Steer = -0.25
	data.Cars[0].EngineRPM = 11800
	data.Cars[0].TyresPressure = [4]float32{22.5, 22.5, 23.1, 23.1}
	data.Cars[5].Gear = -1

	raw, err := Encode(&Packet{Header: testHeader(Format2025, IDCarTelemetry), Data: data})
	require.NoError(t, err)

	p, err := Decode(raw)
	require.NoError(t, err)
	got, ok := p.Data.(*CarTelemetry)
	require.True(t, ok)
	assert.Equal(t, uint16(287), got.Cars[0].Speed)
	assert.Equal(t, int8(7), got.Cars[0].Gear)
	assert.Equal(t, float32(0.875), got.Cars[0].Throttle)
	assert.Equal(t, float32(-0.25), got.Cars[0].Steer)
	assert.Equal(t, int8(-1), got.Cars[5].Gear)
	assert.Nil(t, got.MFD)
}

func TestSession_FullBody(t *testing.T) {
	data := &Session{TrackID: 7, TotalLaps: 50, PitStopRejoinPosition: 12}
	data.RuleSet = 1
	data.TimeOfDay = 840
	data.NumSessionsInWeekend = 3
	data.WeekendStructure = [12]uint8{1, 5, 10}
	data.Sector2LapDistanceStart = 1843.5
	data.Sector3LapDistanceStart = 3911.25

	raw, err := Encode(&Packet{Header: testHeader(Format2025, IDSession), Data: data})
	require.NoError(t, err)
	assert.Len(t, raw, HeaderSize+724)

	p, err := Decode(raw)
	require.NoError(t, err)
	got, ok := p.Data.(*Session)
	require.True(t, ok)
	assert.Equal(t, data, got)

	_, err = Decode(raw[:HeaderSize+656])
	assert.ErrorContains(t, err, string(ReasonTruncated))
}

func TestOptionalTrailers(t *testing.T) {
	t.Run("telemetry mfd", func(t *testing.T) {
		data := &CarTelemetry{MFD: &MFDState{PanelIndex: 2, PanelIndexSecondaryPlayer: 255, SuggestedGear: 6}}
		raw, err := Encode(&Packet{Header: testHeader(Format2024, IDCarTelemetry), Data: data})
		require.NoError(t, err)
		require.Len(t, raw, HeaderSize+1320+3)

		p, err := Decode(raw)
		require.NoError(t, err)
		got := p.Data.(*CarTelemetry)
		require.NotNil(t, got.MFD)
		assert.Equal(t, int8(6), got.MFD.SuggestedGear)
	})

	t.Run("lap data time trial indices", func(t *testing.T) {
		data := &Laps{TimeTrial: &TimeTrialIndices{PersonalBestCarIdx: 3, RivalCarIdx: 4}}
		data.Cars[0].LastLapTimeMS = 90_100
		data.Cars[0].Sector1TimeMinutesPart = 1
		data.Cars[0].Sector1TimeMSPart = 2_500
		raw, err := Encode(&Packet{Header: testHeader(Format2025, IDLapData), Data: data})
		require.NoError(t, err)

		p, err := Decode(raw)
		require.NoError(t, err)
		got := p.Data.(*Laps)
		assert.Equal(t, data.TimeTrial, got.TimeTrial)
		assert.Equal(t, "1m30.1s", got.Cars[0].LastLapTime().String())
		assert.Equal(t, "1m2.5s", got.Cars[0].Sector1Time().String())

		p, err = Decode(raw[:len(raw)-1])
		require.NoError(t, err)
		assert.Nil(t, p.Data.(*Laps).TimeTrial)
	})
}

func TestParticipants_FormatDifferences(t *testing.T) {
	data := &Participants{NumActiveCars: 20}
	data.Cars[0] = Participant{TeamID: 8, RaceNumber: 4, Name: "NORRIS", TechLevel: 3000, Platform: 255}
	data.Cars[1] = Participant{TeamID: 1, RaceNumber: 16, Name: "LECLERC",
		LiveryColours: []LiveryColour{{Red: 220}, {Red: 255, Green: 242}}}

	for _, format := range Formats() {
		raw, err := Encode(&Packet{Header: testHeader(format, IDParticipants), Data: data})
		require.NoError(t, err)
		size, _ := BodySize(format, IDParticipants)
		assert.Len(t, raw, HeaderSize+size)

		p, err := Decode(raw)
		require.NoError(t, err)
		got := p.Data.(*Participants)
		assert.Equal(t, "NORRIS", got.Cars[0].Name)
		assert.Equal(t, uint16(3000), got.Cars[0].TechLevel)
		assert.Equal(t, "LECLERC", got.Cars[1].Name)

		if format == Format2025 {
			assert.Equal(t, data.Cars[1].LiveryColours, got.Cars[1].LiveryColours)
		} else {
			assert.Empty(t, got.Cars[1].LiveryColours)
		}
	}

	long := &Participants{}
	long.Cars[0].Name = string(bytes.Repeat([]byte("X"), 40))
	raw, err := Encode(&Packet{Header: testHeader(Format2025, IDParticipants), Data: long})
	require.NoError(t, err)
	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Len(t, p.Data.(*Participants).Cars[0].Name, 31)
}

func TestCarDamage_BlistersOnlyIn2025(t *testing.T) {
	data := &CarDamage{}
	data.Cars[0].TyresWear = [4]float32{10, 11, 12, 13}
	data.Cars[0].TyreBlisters = [4]uint8{1, 2, 3, 4}
	data.Cars[0].EngineSeized = 1

	raw, err := Encode(&Packet{Header: testHeader(Format2025, IDCarDamage), Data: data})
	require.NoError(t, err)
	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, data.Cars[0], p.Data.(*CarDamage).Cars[0])

	raw, err = Encode(&Packet{Header: testHeader(Format2024, IDCarDamage), Data: data})
	require.NoError(t, err)
	p, err = Decode(raw)
	require.NoError(t, err)
	got := p.Data.(*CarDamage).Cars[0]
	assert.Equal(t, data.Cars[0].TyresWear, got.TyresWear)
	assert.Equal(t, [4]uint8{}, got.TyreBlisters)
	assert.Equal(t, uint8(1), got.EngineSeized)
}

func TestEvents(t *testing.T) {
	encode := func(t *testing.T, format uint16, ev *Event) []byte {
		t.Helper()
		raw, err := Encode(&Packet{Header: testHeader(format, IDEvent), Data: ev})
		require.NoError(t, err)
		return raw
	}

	t.Run("fastest lap details", func(t *testing.T) {
		raw := encode(t, Format2024, &Event{Code: "FTLP", Details: &FastestLap{VehicleIdx: 3, LapTime: 90.1}})
		p, err := Decode(raw)
		require.NoError(t, err)
		ev := p.Data.(*Event)
		assert.Equal(t, EventFastestLap, ev.Kind)
		assert.Equal(t, &FastestLap{VehicleIdx: 3, LapTime: 90.1}, ev.Details)
	})

	t.Run("no details", func(t *testing.T) {
		p, err := Decode(encode(t, Format2025, &Event{Code: "SSTA"}))
		require.NoError(t, err)
		ev := p.Data.(*Event)
		assert.Equal(t, EventSessionStarted, ev.Kind)
		assert.Nil(t, ev.Details)
	})

	t.Run("unknown code", func(t *testing.T) {
		p, err := Decode(encode(t, Format2025, &Event{Code: "ZZZZ"}))
		require.NoError(t, err)
		ev := p.Data.(*Event)
		assert.Equal(t, "ZZZZ", ev.Code)
		assert.Equal(t, EventUnknown, ev.Kind)
	})

	t.Run("truncated details", func(t *testing.T) {
		raw := encode(t, Format2025, &Event{Code: "SPTP", Details: &SpeedTrap{Speed: 331.2}})
		_, err := Decode(raw[:HeaderSize+6])
		f := requireFailure(t, err, ReasonTruncated)
		assert.Equal(t, HeaderSize+4+12, f.Need)
		assert.Equal(t, IDEvent, f.PacketID)
	})

	t.Run("retirement reason per format", func(t *testing.T) {
		ev := &Event{Code: "RTMT", Details: &Retirement{VehicleIdx: 9, Reason: 4}}

		p, err := Decode(encode(t, Format2025, ev))
		require.NoError(t, err)
		assert.Equal(t, &Retirement{VehicleIdx: 9, Reason: 4}, p.Data.(*Event).Details)

		p, err = Decode(encode(t, Format2024, ev))
		require.NoError(t, err)
		assert.Equal(t, &Retirement{VehicleIdx: 9}, p.Data.(*Event).Details)
	})

	t.Run("json shape", func(t *testing.T) {
		p, err := Decode(encode(t, Format2025, &Event{Code: "OVTK", Details: &Overtake{OvertakingVehicleIdx: 1, BeingOvertakenVehicleIdx: 2}}))
		require.NoError(t, err)
		b, err := json.Marshal(p)
		require.NoError(t, err)
		assert.JSONEq(t, `{"code":"OVTK","kind":"overtake","details":{"overtaking_vehicle_idx":1,"being_overtaken_vehicle_idx":2}}`,
			string(mustField(t, b, "data")))
		assert.Contains(t, string(b), `"type":"event"`)
		assert.Contains(t, string(b), `"session_uid":"16045690984503111693"`)
	})
}

func mustField(t *testing.T, b []byte, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &m))
	v, ok := m[key]
	require.True(t, ok, "missing %q", key)
	return v
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)

	_, err = Encode(&Packet{Header: testHeader(Format2025, IDMotion), Data: &CarStatus{}})
	assert.Error(t, err)

	_, err = Encode(&Packet{Header: testHeader(Format2024, IDLapPositions), Data: &LapPositions{}})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Silverstone", TrackName(7))
	assert.Equal(t, "Losail", TrackName(32))
	assert.Equal(t, "Unknown", TrackName(-1))
	assert.Equal(t, "Race", SessionTypeName(15))
	assert.Equal(t, "Time Trial", SessionTypeName(18))
	assert.Equal(t, "Unknown", SessionTypeName(200))
	assert.Equal(t, "McLaren", TeamName(8))
	assert.Equal(t, "Team 104", TeamName(104))
	assert.Equal(t, "Soft", TyreCompoundName(16))
	assert.Equal(t, "Retired", ResultStatusName(7))
	assert.Equal(t, "unknown_42", ID(42).String())
	assert.Equal(t, EventRedFlag, KindOf("RDFL"))
}
