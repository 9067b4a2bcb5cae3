package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// entry decodes and encodes one fixed-size wire block. size is the minimum
// number of body bytes decode needs; decode may read further for trailers.
type entry struct {
	size   int
	decode func(b []byte) (any, error)
	encode func(b []byte, v any) ([]byte, error)
}

// layouts holds one packet table per format year.
var layouts = map[uint16]map[ID]entry{
	Format2024: packets2024(),
	Format2025: packets2025(),
}

// convert builds an entry for a wire struct W exposed to callers as D.
func convert[W, D any](from func(*W) D, to func(D) *W) entry {
	size := binary.Size(new(W))
	if size < 0 {
		panic(fmt.Sprintf("packet: %T is not fixed size", *new(W)))
	}
	return entry{
		size: size,
		decode: func(b []byte) (any, error) {
			w := new(W)
			if _, err := binary.Decode(b[:size], binary.LittleEndian, w); err != nil {
				return nil, err
			}
			return from(w), nil
		},
		encode: func(b []byte, v any) ([]byte, error) {
			d, ok := v.(D)
			if !ok {
				return nil, fmt.Errorf("expected %T, got %T", *new(D), v)
			}
			return binary.Append(b, binary.LittleEndian, to(d))
		},
	}
}

// direct builds an entry for a type whose wire and domain shapes match.
func direct[T any]() entry {
	return convert(func(w *T) *T { return w }, func(p *T) *T { return p })
}

// trailed builds an entry for a block followed by an optional trailer X.
func trailed[C, X any, D any](build func(*C, *X) D, split func(D) (*C, *X)) entry {
	size := binary.Size(new(C))
	xsize := binary.Size(new(X))
	return entry{
		size: size,
		decode: func(b []byte) (any, error) {
			c := new(C)
			if _, err := binary.Decode(b[:size], binary.LittleEndian, c); err != nil {
				return nil, err
			}
			var x *X
			if len(b) >= size+xsize {
				x = new(X)
				if _, err := binary.Decode(b[size:size+xsize], binary.LittleEndian, x); err != nil {
					return nil, err
				}
			}
			return build(c, x), nil
		},
		encode: func(b []byte, v any) ([]byte, error) {
			d, ok := v.(D)
			if !ok {
				return nil, fmt.Errorf("expected %T, got %T", *new(D), v)
			}
			c, x := split(d)
			b, err := binary.Append(b, binary.LittleEndian, c)
			if err != nil || x == nil {
				return b, err
			}
			return binary.Append(b, binary.LittleEndian, x)
		},
	}
}

// none is an empty event detail block.
var none = entry{
	decode: func([]byte) (any, error) { return nil, nil },
	encode: func(b []byte, _ any) ([]byte, error) { return b, nil },
}

var (
	lapsEntry = trailed(
		func(c *[NumCars]LapData, x *TimeTrialIndices) *Laps { return &Laps{Cars: *c, TimeTrial: x} },
		func(l *Laps) (*[NumCars]LapData, *TimeTrialIndices) { return &l.Cars, l.TimeTrial },
	)
	telemetryEntry = trailed(
		func(c *[NumCars]CarTelemetryData, x *MFDState) *CarTelemetry { return &CarTelemetry{Cars: *c, MFD: x} },
		func(t *CarTelemetry) (*[NumCars]CarTelemetryData, *MFDState) { return &t.Cars, t.MFD },
	)
)

func commonPackets() map[ID]entry {
	return map[ID]entry{
		IDMotion:         direct[Motion](),
		IDSession:        direct[Session](),
		IDLapData:        lapsEntry,
		IDCarSetups:      direct[CarSetups](),
		IDCarTelemetry:   telemetryEntry,
		IDCarStatus:      direct[CarStatus](),
		IDSessionHistory: direct[SessionHistory](),
		IDTyreSets:       direct[TyreSets](),
		IDTimeTrial:      direct[TimeTrial](),
	}
}

func packets2024() map[ID]entry {
	m := commonPackets()
	m[IDEvent] = eventEntry(events2024())
	m[IDParticipants] = convert(participantsFrom2024, participantsTo2024)
	m[IDFinalClassification] = convert(classificationFrom2024, classificationTo2024)
	m[IDLobbyInfo] = convert(lobbyFrom2024, lobbyTo2024)
	m[IDCarDamage] = convert(damageFrom2024, damageTo2024)
	m[IDMotionEx] = convert(
		func(w *MotionExBase) *MotionEx { return &MotionEx{MotionExBase: *w} },
		func(m *MotionEx) *MotionExBase { return &m.MotionExBase },
	)
	return m
}

func packets2025() map[ID]entry {
	m := commonPackets()
	m[IDEvent] = eventEntry(events2025())
	m[IDParticipants] = convert(participantsFrom2025, participantsTo2025)
	m[IDFinalClassification] = direct[FinalClassification]()
	m[IDLobbyInfo] = convert(lobbyFrom2025, lobbyTo2025)
	m[IDCarDamage] = direct[CarDamage]()
	m[IDMotionEx] = direct[MotionEx]()
	m[IDLapPositions] = direct[LapPositions]()
	return m
}

// Event detail tables.

func commonEvents() map[string]entry {
	return map[string]entry{
		"SSTA": none,
		"SEND": none,
		"FTLP": direct[FastestLap](),
		"DRSE": none,
		"TMPT": direct[TeamMateInPits](),
		"CHQF": none,
		"RCWN": direct[RaceWinner](),
		"PENA": direct[Penalty](),
		"SPTP": direct[SpeedTrap](),
		"STLG": direct[StartLights](),
		"LGOT": none,
		"DTSV": direct[DriveThroughServed](),
		"FLBK": direct[Flashback](),
		"BUTN": direct[Buttons](),
		"RDFL": none,
		"OVTK": direct[Overtake](),
		"SCAR": direct[SafetyCar](),
		"COLL": direct[Collision](),
	}
}

type vehicleWire struct{ VehicleIdx uint8 }

func events2024() map[string]entry {
	m := commonEvents()
	m["RTMT"] = convert(
		func(w *vehicleWire) *Retirement { return &Retirement{VehicleIdx: w.VehicleIdx} },
		func(r *Retirement) *vehicleWire { return &vehicleWire{VehicleIdx: r.VehicleIdx} },
	)
	m["DRSD"] = none
	m["SGSV"] = convert(
		func(w *vehicleWire) *StopGoServed { return &StopGoServed{VehicleIdx: w.VehicleIdx} },
		func(s *StopGoServed) *vehicleWire { return &vehicleWire{VehicleIdx: s.VehicleIdx} },
	)
	return m
}

func events2025() map[string]entry {
	m := commonEvents()
	m["RTMT"] = direct[Retirement]()
	m["DRSD"] = direct[DRSDisabled]()
	m["SGSV"] = direct[StopGoServed]()
	return m
}

// eventEntry reads the four-character code, then the code's detail block.
// Unknown codes decode to EventUnknown without details.
func eventEntry(details map[string]entry) entry {
	return entry{
		size: 4,
		decode: func(b []byte) (any, error) {
			code := string(b[:4])
			ev := &Event{Code: code, Kind: KindOf(code)}
			det, ok := details[code]
			if !ok {
				ev.Kind = EventUnknown
				return ev, nil
			}
			if len(b) < 4+det.size {
				return nil, &DecodeFailure{Reason: ReasonTruncated, Need: 4 + det.size, Got: len(b)}
			}
			v, err := det.decode(b[4:])
			if err != nil {
				return nil, err
			}
			if v != nil {
				ev.Details = v.(EventDetails)
			}
			return ev, nil
		},
		encode: func(b []byte, v any) ([]byte, error) {
			ev, ok := v.(*Event)
			if !ok {
				return nil, fmt.Errorf("expected *Event, got %T", v)
			}
			var code [4]byte
			copy(code[:], ev.Code)
			b = append(b, code[:]...)
			det, ok := details[ev.Code]
			if !ok || ev.Details == nil {
				return b, nil
			}
			return det.encode(b, ev.Details)
		},
	}
}

// Year-specific wire shapes.

type participantWire2024 struct {
	AIControlled    uint8
	DriverID        uint8
	NetworkID       uint8
	TeamID          uint8
	MyTeam          uint8
	RaceNumber      uint8
	Nationality     uint8
	Name            [48]byte
	YourTelemetry   uint8
	ShowOnlineNames uint8
	TechLevel       uint16
	Platform        uint8
}

type participantsWire2024 struct {
	NumActiveCars uint8
	Cars          [NumCars]participantWire2024
}

type participantWire2025 struct {
	AIControlled    uint8
	DriverID        uint8
	NetworkID       uint8
	TeamID          uint8
	MyTeam          uint8
	RaceNumber      uint8
	Nationality     uint8
	Name            [32]byte
	YourTelemetry   uint8
	ShowOnlineNames uint8
	TechLevel       uint16
	Platform        uint8
	NumColours      uint8
	LiveryColours   [4]LiveryColour
}

type participantsWire2025 struct {
	NumActiveCars uint8
	Cars          [NumCars]participantWire2025
}

func participantsFrom2024(w *participantsWire2024) *Participants {
	p := &Participants{NumActiveCars: w.NumActiveCars}
	for i, c := range w.Cars {
		p.Cars[i] = Participant{
			AIControlled: c.AIControlled, DriverID: c.DriverID, NetworkID: c.NetworkID,
			TeamID: c.TeamID, MyTeam: c.MyTeam, RaceNumber: c.RaceNumber, Nationality: c.Nationality,
			Name:          cString(c.Name[:]),
			YourTelemetry: c.YourTelemetry, ShowOnlineNames: c.ShowOnlineNames,
			TechLevel: c.TechLevel, Platform: c.Platform,
		}
	}
	return p
}

func participantsTo2024(p *Participants) *participantsWire2024 {
	w := &participantsWire2024{NumActiveCars: p.NumActiveCars}
	for i, c := range p.Cars {
		w.Cars[i] = participantWire2024{
			AIControlled: c.AIControlled, DriverID: c.DriverID, NetworkID: c.NetworkID,
			TeamID: c.TeamID, MyTeam: c.MyTeam, RaceNumber: c.RaceNumber, Nationality: c.Nationality,
			YourTelemetry: c.YourTelemetry, ShowOnlineNames: c.ShowOnlineNames,
			TechLevel: c.TechLevel, Platform: c.Platform,
		}
		putCString(w.Cars[i].Name[:], c.Name)
	}
	return w
}

func participantsFrom2025(w *participantsWire2025) *Participants {
	p := &Participants{NumActiveCars: w.NumActiveCars}
	for i, c := range w.Cars {
		n := min(int(c.NumColours), len(c.LiveryColours))
		p.Cars[i] = Participant{
			AIControlled: c.AIControlled, DriverID: c.DriverID, NetworkID: c.NetworkID,
			TeamID: c.TeamID, MyTeam: c.MyTeam, RaceNumber: c.RaceNumber, Nationality: c.Nationality,
			Name:          cString(c.Name[:]),
			YourTelemetry: c.YourTelemetry, ShowOnlineNames: c.ShowOnlineNames,
			TechLevel: c.TechLevel, Platform: c.Platform,
		}
		if n > 0 {
			p.Cars[i].LiveryColours = append([]LiveryColour(nil), c.LiveryColours[:n]...)
		}
	}
	return p
}

func participantsTo2025(p *Participants) *participantsWire2025 {
	w := &participantsWire2025{NumActiveCars: p.NumActiveCars}
	for i, c := range p.Cars {
		wc := participantWire2025{
			AIControlled: c.AIControlled, DriverID: c.DriverID, NetworkID: c.NetworkID,
			TeamID: c.TeamID, MyTeam: c.MyTeam, RaceNumber: c.RaceNumber, Nationality: c.Nationality,
			YourTelemetry: c.YourTelemetry, ShowOnlineNames: c.ShowOnlineNames,
			TechLevel: c.TechLevel, Platform: c.Platform,
		}
		putCString(wc.Name[:], c.Name)
		wc.NumColours = uint8(copy(wc.LiveryColours[:], c.LiveryColours))
		w.Cars[i] = wc
	}
	return w
}

type lobbyPlayerWire2024 struct {
	AIControlled    uint8
	TeamID          uint8
	Nationality     uint8
	Platform        uint8
	Name            [48]byte
	CarNumber       uint8
	YourTelemetry   uint8
	ShowOnlineNames uint8
	TechLevel       uint16
	ReadyStatus     uint8
}

type lobbyWire2024 struct {
	NumPlayers uint8
	Players    [NumCars]lobbyPlayerWire2024
}

type lobbyPlayerWire2025 struct {
	AIControlled    uint8
	TeamID          uint8
	Nationality     uint8
	Platform        uint8
	Name            [32]byte
	CarNumber       uint8
	YourTelemetry   uint8
	ShowOnlineNames uint8
	TechLevel       uint16
	ReadyStatus     uint8
}

type lobbyWire2025 struct {
	NumPlayers uint8
	Players    [NumCars]lobbyPlayerWire2025
}

func lobbyFrom2024(w *lobbyWire2024) *LobbyInfo {
	l := &LobbyInfo{NumPlayers: w.NumPlayers}
	for i, p := range w.Players {
		l.Players[i] = LobbyPlayer{
			AIControlled: p.AIControlled, TeamID: p.TeamID, Nationality: p.Nationality, Platform: p.Platform,
			Name:      cString(p.Name[:]),
			CarNumber: p.CarNumber, YourTelemetry: p.YourTelemetry, ShowOnlineNames: p.ShowOnlineNames,
			TechLevel: p.TechLevel, ReadyStatus: p.ReadyStatus,
		}
	}
	return l
}

func lobbyTo2024(l *LobbyInfo) *lobbyWire2024 {
	w := &lobbyWire2024{NumPlayers: l.NumPlayers}
	for i, p := range l.Players {
		w.Players[i] = lobbyPlayerWire2024{
			AIControlled: p.AIControlled, TeamID: p.TeamID, Nationality: p.Nationality, Platform: p.Platform,
			CarNumber: p.CarNumber, YourTelemetry: p.YourTelemetry, ShowOnlineNames: p.ShowOnlineNames,
			TechLevel: p.TechLevel, ReadyStatus: p.ReadyStatus,
		}
		putCString(w.Players[i].Name[:], p.Name)
	}
	return w
}

func lobbyFrom2025(w *lobbyWire2025) *LobbyInfo {
	l := &LobbyInfo{NumPlayers: w.NumPlayers}
	for i, p := range w.Players {
		l.Players[i] = LobbyPlayer{
			AIControlled: p.AIControlled, TeamID: p.TeamID, Nationality: p.Nationality, Platform: p.Platform,
			Name:      cString(p.Name[:]),
			CarNumber: p.CarNumber, YourTelemetry: p.YourTelemetry, ShowOnlineNames: p.ShowOnlineNames,
			TechLevel: p.TechLevel, ReadyStatus: p.ReadyStatus,
		}
	}
	return l
}

func lobbyTo2025(l *LobbyInfo) *lobbyWire2025 {
	w := &lobbyWire2025{NumPlayers: l.NumPlayers}
	for i, p := range l.Players {
		w.Players[i] = lobbyPlayerWire2025{
			AIControlled: p.AIControlled, TeamID: p.TeamID, Nationality: p.Nationality, Platform: p.Platform,
			CarNumber: p.CarNumber, YourTelemetry: p.YourTelemetry, ShowOnlineNames: p.ShowOnlineNames,
			TechLevel: p.TechLevel, ReadyStatus: p.ReadyStatus,
		}
		putCString(w.Players[i].Name[:], p.Name)
	}
	return w
}

type classificationWire2024 struct {
	Position          uint8
	NumLaps           uint8
	GridPosition      uint8
	Points            uint8
	NumPitStops       uint8
	ResultStatus      uint8
	BestLapTimeMS     uint32
	TotalRaceTime     float64
	PenaltiesTime     uint8
	NumPenalties      uint8
	NumTyreStints     uint8
	TyreStintsActual  [8]uint8
	TyreStintsVisual  [8]uint8
	TyreStintsEndLaps [8]uint8
}

type finalClassificationWire2024 struct {
	NumCars uint8
	Cars    [NumCars]classificationWire2024
}

func classificationFrom2024(w *finalClassificationWire2024) *FinalClassification {
	f := &FinalClassification{NumCars: w.NumCars}
	for i, c := range w.Cars {
		f.Cars[i] = FinalClassificationData{
			Position: c.Position, NumLaps: c.NumLaps, GridPosition: c.GridPosition, Points: c.Points,
			NumPitStops: c.NumPitStops, ResultStatus: c.ResultStatus,
			BestLapTimeMS: c.BestLapTimeMS, TotalRaceTime: c.TotalRaceTime,
			PenaltiesTime: c.PenaltiesTime, NumPenalties: c.NumPenalties, NumTyreStints: c.NumTyreStints,
			TyreStintsActual: c.TyreStintsActual, TyreStintsVisual: c.TyreStintsVisual,
			TyreStintsEndLaps: c.TyreStintsEndLaps,
		}
	}
	return f
}

func classificationTo2024(f *FinalClassification) *finalClassificationWire2024 {
	w := &finalClassificationWire2024{NumCars: f.NumCars}
	for i, c := range f.Cars {
		w.Cars[i] = classificationWire2024{
			Position: c.Position, NumLaps: c.NumLaps, GridPosition: c.GridPosition, Points: c.Points,
			NumPitStops: c.NumPitStops, ResultStatus: c.ResultStatus,
			BestLapTimeMS: c.BestLapTimeMS, TotalRaceTime: c.TotalRaceTime,
			PenaltiesTime: c.PenaltiesTime, NumPenalties: c.NumPenalties, NumTyreStints: c.NumTyreStints,
			TyreStintsActual: c.TyreStintsActual, TyreStintsVisual: c.TyreStintsVisual,
			TyreStintsEndLaps: c.TyreStintsEndLaps,
		}
	}
	return w
}

type damageWire2024 struct {
	TyresWear            [4]float32
	TyresDamage          [4]uint8
	BrakesDamage         [4]uint8
	FrontLeftWingDamage  uint8
	FrontRightWingDamage uint8
	RearWingDamage       uint8
	FloorDamage          uint8
	DiffuserDamage       uint8
	SidepodDamage        uint8
	DRSFault             uint8
	ERSFault             uint8
	GearBoxDamage        uint8
	EngineDamage         uint8
	EngineMGUHWear       uint8
	EngineESWear         uint8
	EngineCEWear         uint8
	EngineICEWear        uint8
	EngineMGUKWear       uint8
	EngineTCWear         uint8
	EngineBlown          uint8
	EngineSeized         uint8
}

type carDamageWire2024 struct {
	Cars [NumCars]damageWire2024
}

func damageFrom2024(w *carDamageWire2024) *CarDamage {
	d := &CarDamage{}
	for i, c := range w.Cars {
		d.Cars[i] = CarDamageData{
			TyresWear: c.TyresWear, TyresDamage: c.TyresDamage, BrakesDamage: c.BrakesDamage,
			FrontLeftWingDamage: c.FrontLeftWingDamage, FrontRightWingDamage: c.FrontRightWingDamage,
			RearWingDamage: c.RearWingDamage, FloorDamage: c.FloorDamage, DiffuserDamage: c.DiffuserDamage,
			SidepodDamage: c.SidepodDamage, DRSFault: c.DRSFault, ERSFault: c.ERSFault,
			GearBoxDamage: c.GearBoxDamage, EngineDamage: c.EngineDamage,
			EngineMGUHWear: c.EngineMGUHWear, EngineESWear: c.EngineESWear, EngineCEWear: c.EngineCEWear,
			EngineICEWear: c.EngineICEWear, EngineMGUKWear: c.EngineMGUKWear, EngineTCWear: c.EngineTCWear,
			EngineBlown: c.EngineBlown, EngineSeized: c.EngineSeized,
		}
	}
	return d
}

func damageTo2024(d *CarDamage) *carDamageWire2024 {
	w := &carDamageWire2024{}
	for i, c := range d.Cars {
		w.Cars[i] = damageWire2024{
			TyresWear: c.TyresWear, TyresDamage: c.TyresDamage, BrakesDamage: c.BrakesDamage,
			FrontLeftWingDamage: c.FrontLeftWingDamage, FrontRightWingDamage: c.FrontRightWingDamage,
			RearWingDamage: c.RearWingDamage, FloorDamage: c.FloorDamage, DiffuserDamage: c.DiffuserDamage,
			SidepodDamage: c.SidepodDamage, DRSFault: c.DRSFault, ERSFault: c.ERSFault,
			GearBoxDamage: c.GearBoxDamage, EngineDamage: c.EngineDamage,
			EngineMGUHWear: c.EngineMGUHWear, EngineESWear: c.EngineESWear, EngineCEWear: c.EngineCEWear,
			EngineICEWear: c.EngineICEWear, EngineMGUKWear: c.EngineMGUKWear, EngineTCWear: c.EngineTCWear,
			EngineBlown: c.EngineBlown, EngineSeized: c.EngineSeized,
		}
	}
	return w
}

// cString returns b up to the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// putCString copies s into dst, truncated so at least one NUL remains.
func putCString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	clear(dst[n:])
}
