package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/packet"
)

func lapsPacket(uid uint64, lapNum uint8, lastLap time.Duration) *packet.Packet {
	laps := &packet.Laps{}
	laps.Cars[0].CurrentLapNum = lapNum
	laps.Cars[0].LastLapTimeMS = uint32(lastLap.Milliseconds())
	return &packet.Packet{
		Header: packet.Header{PacketFormat: packet.Format2025, PacketID: packet.IDLapData, SessionUID: uid},
		Type:   packet.IDLapData.String(),
		Data:   laps,
	}
}

func telemetryPacket(uid uint64, speed uint16, gear int8) *packet.Packet {
	tel := &packet.CarTelemetry{}
	tel.Cars[0].Speed = speed
	tel.Cars[0].Gear = gear
	return &packet.Packet{
		Header: packet.Header{PacketFormat: packet.Format2025, PacketID: packet.IDCarTelemetry, SessionUID: uid},
		Type:   packet.IDCarTelemetry.String(),
		Data:   tel,
	}
}

func TestBestLapOnlyImproves(t *testing.T) {
	s := NewSessionContext(1, time.Now())

	laps := []time.Duration{92300 * time.Millisecond, 90100 * time.Millisecond, 91000 * time.Millisecond}
	improved := make([]bool, 0, len(laps))
	for _, d := range laps {
		improved = append(improved, s.ObserveLap(d))
		assert.LessOrEqual(t, s.BestLap, laps[0])
	}

	assert.Equal(t, []bool{true, true, false}, improved)
	assert.Equal(t, 90100*time.Millisecond, s.BestLap)
	assert.Equal(t, 91000*time.Millisecond, s.LastLap)

	assert.False(t, s.ObserveLap(0), "zero lap time is not a lap")
	assert.Equal(t, 90100*time.Millisecond, s.BestLap)
}

func TestBestSectorsIgnoreUnset(t *testing.T) {
	s := NewSessionContext(1, time.Now())
	s.ObserveSectors(30*time.Second, 0)
	s.ObserveSectors(31*time.Second, 29*time.Second)
	s.ObserveSectors(0, 28*time.Second)

	assert.Equal(t, 30*time.Second, s.BestSector1)
	assert.Equal(t, 28*time.Second, s.BestSector2)
}

func TestApplyLapSequence(t *testing.T) {
	now := time.Now()
	s := NewSessionContext(7, now)

	// the first observed lap number only seeds the counter
	assert.False(t, s.Apply(lapsPacket(7, 1, 0), now))
	assert.True(t, s.Apply(lapsPacket(7, 2, 92300*time.Millisecond), now))
	assert.False(t, s.Apply(lapsPacket(7, 2, 92300*time.Millisecond), now))
	assert.True(t, s.Apply(lapsPacket(7, 3, 90100*time.Millisecond), now))
	assert.True(t, s.Apply(lapsPacket(7, 4, 91000*time.Millisecond), now))

	assert.Equal(t, uint8(4), s.CurrentLap)
	assert.Equal(t, 90100*time.Millisecond, s.BestLap)
	assert.Equal(t, 91000*time.Millisecond, s.LastLap)
	assert.Equal(t, int64(5), s.Packets)

	sum := s.Summary()
	assert.Equal(t, int64(90100), sum.BestLapMS)
	assert.Equal(t, int64(91000), sum.LastLapMS)
	assert.Nil(t, sum.TrackID)
}

func TestApplyLapRewind(t *testing.T) {
	now := time.Now()
	s := NewSessionContext(7, now)

	s.Apply(lapsPacket(7, 4, 0), now)
	assert.True(t, s.Apply(lapsPacket(7, 5, 91000*time.Millisecond), now))

	// a flashback back into lap 3 resyncs without a completion
	assert.False(t, s.Apply(lapsPacket(7, 3, 89000*time.Millisecond), now))
	assert.Equal(t, uint8(3), s.CurrentLap)
	assert.Equal(t, 91000*time.Millisecond, s.BestLap)

	// the rerun laps count again before the old maximum is passed
	assert.True(t, s.Apply(lapsPacket(7, 4, 90500*time.Millisecond), now))
	assert.True(t, s.Apply(lapsPacket(7, 5, 90200*time.Millisecond), now))
	assert.Equal(t, uint8(5), s.CurrentLap)
	assert.Equal(t, 90200*time.Millisecond, s.BestLap)
	assert.Equal(t, 90200*time.Millisecond, s.LastLap)
}

func TestSessionChangeResetsContext(t *testing.T) {
	now := time.Now()

	ctx, started := Track(nil, 0xA, now)
	require.True(t, started)
	ctx.Apply(lapsPacket(0xA, 1, 0), now)
	ctx.Apply(lapsPacket(0xA, 2, 90100*time.Millisecond), now)
	ctx.Apply(telemetryPacket(0xA, 301, 8), now)
	require.Equal(t, 90100*time.Millisecond, ctx.BestLap)
	require.Equal(t, uint16(301), ctx.TopSpeed)

	same, started := Track(ctx, 0xA, now)
	assert.False(t, started)
	assert.Same(t, ctx, same)

	next, started := Track(ctx, 0xB, now.Add(time.Second))
	require.True(t, started)
	assert.NotSame(t, ctx, next)
	assert.Equal(t, uint64(0xB), next.SessionUID)
	assert.Zero(t, next.CurrentLap)
	assert.Zero(t, next.BestLap)
	assert.Zero(t, next.TopSpeed)
	assert.Zero(t, next.Packets)

	next.Apply(telemetryPacket(0xB, 250, 6), now)
	assert.Equal(t, uint16(250), next.TopSpeed)
}

func TestApplySessionAndEvents(t *testing.T) {
	now := time.Now()
	s := NewSessionContext(1, now)
	s.Apply(&packet.Packet{
		Header: packet.Header{PacketID: packet.IDSession},
		Data:   &packet.Session{TrackID: 7, SessionType: 15, TotalLaps: 52},
	}, now)
	s.Apply(&packet.Packet{
		Header: packet.Header{PacketID: packet.IDEvent},
		Data:   &packet.Event{Code: "COLL", Kind: packet.EventCollision},
	}, now)

	sum := s.Summary()
	require.NotNil(t, sum.TrackID)
	assert.Equal(t, int8(7), *sum.TrackID)
	assert.Equal(t, "Silverstone", sum.TrackName)
	assert.Equal(t, "Race", sum.SessionType)
	assert.Equal(t, uint8(52), sum.TotalLaps)
	assert.Equal(t, 1, sum.Collisions)
}

func TestStateText(t *testing.T) {
	for _, st := range []State{StateInactive, StateActive, StateStale, StateFailed} {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var got State
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, st, got)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
