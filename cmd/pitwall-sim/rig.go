package main

import (
	"math/rand/v2"

	"github.com/c360/pitwall/packet"
)

const (
	frameDuration = 1.0 / 60
	lapLength     = 5000.0
)

// rig simulates one player car at 60 frames per second of game time.
type rig struct {
	format     uint16
	sessionUID uint64
	rnd        *rand.Rand

	frame       uint32
	sessionTime float32
	lap         uint8
	lapTimeMS   uint32
	lastLapMS   uint32
	distance    float32
	sector      uint8

	speed    float32
	rpm      float32
	gear     int8
	throttle float32
	brake    float32
	steer    float32
}

func newRig(format uint16, seed uint64) *rig {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &rig{
		format:     format,
		sessionUID: rnd.Uint64() | 1,
		rnd:        rnd,
		lap:        1,
		rpm:        1000,
		gear:       1,
		throttle:   0.8,
	}
}

// step advances the simulation by one frame and reports whether a lap
// was completed.
func (r *rig) step() bool {
	if r.frame%20 == 0 {
		if r.rnd.Float32() < 0.1 {
			r.throttle = r.rnd.Float32()
			r.brake = 0
			if r.throttle < 0.3 {
				r.brake = r.rnd.Float32() * 0.8
			}
			r.steer = r.rnd.Float32() - 0.5
		}
		if r.throttle > r.brake {
			r.speed = min(350, r.speed+r.throttle*5)
			r.rpm = min(13000, r.rpm+100)
		} else {
			r.speed = max(0, r.speed-r.brake*10)
			r.rpm = max(1000, r.rpm-200)
		}
		switch {
		case r.rpm > 8000 && r.gear < 8:
			r.gear++
			r.rpm -= 2000
		case r.rpm < 3000 && r.gear > 1:
			r.gear--
			r.rpm += 1500
		}
	}

	r.frame++
	r.sessionTime += frameDuration
	r.lapTimeMS += 16
	r.distance += max(1, r.speed*frameDuration)

	completed := false
	if r.distance > lapLength {
		r.lap++
		r.lastLapMS = r.lapTimeMS
		r.lapTimeMS = 0
		r.distance = 0
		completed = true
	}
	switch {
	case r.distance > 2*lapLength/3:
		r.sector = 2
	case r.distance > lapLength/3:
		r.sector = 1
	default:
		r.sector = 0
	}
	return completed
}

func (r *rig) header(id packet.ID) packet.Header {
	return packet.Header{
		PacketFormat:            r.format,
		GameYear:                uint8(r.format % 100),
		GameMajorVersion:        1,
		PacketVersion:           1,
		PacketID:                id,
		SessionUID:              r.sessionUID,
		SessionTime:             r.sessionTime,
		FrameIdentifier:         r.frame,
		OverallFrameIdentifier:  r.frame,
		SecondaryPlayerCarIndex: 255,
	}
}

func (r *rig) telemetry() *packet.Packet {
	tel := &packet.CarTelemetry{}
	for i := range tel.Cars {
		c := &tel.Cars[i]
		c.Speed = uint16(max(0, r.speed+r.rnd.Float32()*40-20))
		c.Throttle = r.throttle
		c.Brake = r.brake
		c.Steer = r.steer
		c.Gear = min(8, max(-1, r.gear+int8(r.rnd.IntN(3))-1))
		c.EngineRPM = uint16(max(1000, r.rpm+float32(r.rnd.IntN(1000))-500))
		c.EngineTemperature = uint16(80 + r.rnd.IntN(30))
		for w := 0; w < 4; w++ {
			c.BrakesTemperature[w] = uint16(200 + r.rnd.IntN(600))
			c.TyresSurfaceTemperature[w] = uint8(80 + r.rnd.IntN(40))
			c.TyresInnerTemperature[w] = uint8(85 + r.rnd.IntN(40))
			c.TyresPressure[w] = 18 + r.rnd.Float32()*7
		}
	}
	// the player car carries the exact simulated state
	tel.Cars[0].Speed = uint16(r.speed)
	tel.Cars[0].Gear = r.gear
	tel.MFD = &packet.MFDState{PanelIndex: 0, PanelIndexSecondaryPlayer: 255, SuggestedGear: r.gear}
	return &packet.Packet{Header: r.header(packet.IDCarTelemetry), Data: tel}
}

func (r *rig) laps() *packet.Packet {
	laps := &packet.Laps{}
	for i := range laps.Cars {
		l := &laps.Cars[i]
		l.LastLapTimeMS = r.lastLapMS
		l.CurrentLapTimeMS = r.lapTimeMS
		l.LapDistance = r.distance
		l.TotalDistance = r.distance + float32(r.lap-1)*lapLength
		l.CarPosition = uint8(i + 1)
		l.CurrentLapNum = r.lap
		l.Sector = r.sector
		l.GridPosition = uint8(i + 1)
		l.DriverStatus = 1
		l.ResultStatus = 2
	}
	return &packet.Packet{Header: r.header(packet.IDLapData), Data: laps}
}

func (r *rig) session() *packet.Packet {
	return &packet.Packet{
		Header: r.header(packet.IDSession),
		Data: &packet.Session{
			TotalLaps:        50,
			TrackLength:      uint16(lapLength),
			SessionType:      15,
			TrackID:          7,
			TrackTemperature: 32,
			AirTemperature:   22,
		},
	}
}

// packets returns the datagrams due on the current frame.
func (r *rig) packets() []*packet.Packet {
	var out []*packet.Packet
	if r.frame%120 == 0 {
		out = append(out, r.session())
	}
	if r.frame%3 == 0 {
		out = append(out, r.laps())
	}
	if r.frame%2 == 0 {
		out = append(out, r.telemetry())
	}
	return out
}
