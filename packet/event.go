package packet

// EventKind names an event code.
type EventKind string

// Event kinds, one per known four-character code.
const (
	EventSessionStarted     EventKind = "session_started"
	EventSessionEnded       EventKind = "session_ended"
	EventFastestLap         EventKind = "fastest_lap"
	EventRetirement         EventKind = "retirement"
	EventDRSEnabled         EventKind = "drs_enabled"
	EventDRSDisabled        EventKind = "drs_disabled"
	EventTeamMateInPits     EventKind = "team_mate_in_pits"
	EventChequeredFlag      EventKind = "chequered_flag"
	EventRaceWinner         EventKind = "race_winner"
	EventPenalty            EventKind = "penalty"
	EventSpeedTrap          EventKind = "speed_trap"
	EventStartLights        EventKind = "start_lights"
	EventLightsOut          EventKind = "lights_out"
	EventDriveThroughServed EventKind = "drive_through_served"
	EventStopGoServed       EventKind = "stop_go_served"
	EventFlashback          EventKind = "flashback"
	EventButtons            EventKind = "buttons"
	EventRedFlag            EventKind = "red_flag"
	EventOvertake           EventKind = "overtake"
	EventSafetyCar          EventKind = "safety_car"
	EventCollision          EventKind = "collision"
	EventUnknown            EventKind = "unknown"
)

var eventKinds = map[string]EventKind{
	"SSTA": EventSessionStarted,
	"SEND": EventSessionEnded,
	"FTLP": EventFastestLap,
	"RTMT": EventRetirement,
	"DRSE": EventDRSEnabled,
	"DRSD": EventDRSDisabled,
	"TMPT": EventTeamMateInPits,
	"CHQF": EventChequeredFlag,
	"RCWN": EventRaceWinner,
	"PENA": EventPenalty,
	"SPTP": EventSpeedTrap,
	"STLG": EventStartLights,
	"LGOT": EventLightsOut,
	"DTSV": EventDriveThroughServed,
	"SGSV": EventStopGoServed,
	"FLBK": EventFlashback,
	"BUTN": EventButtons,
	"RDFL": EventRedFlag,
	"OVTK": EventOvertake,
	"SCAR": EventSafetyCar,
	"COLL": EventCollision,
}

// KindOf maps a four-character code to its kind, EventUnknown otherwise.
func KindOf(code string) EventKind {
	if k, ok := eventKinds[code]; ok {
		return k
	}
	return EventUnknown
}

// Event is a discrete race event. Details is nil for codes that carry none
// and for unknown codes.
type Event struct {
	Code    string       `json:"code"`
	Kind    EventKind    `json:"kind"`
	Details EventDetails `json:"details,omitempty"`
}

// EventDetails is the closed set of per-code event payloads.
type EventDetails interface {
	isEventDetails()
}

type FastestLap struct {
	VehicleIdx uint8   `json:"vehicle_idx"`
	LapTime    float32 `json:"lap_time"`
}

// Retirement.Reason is only populated by the 2025 format.
type Retirement struct {
	VehicleIdx uint8 `json:"vehicle_idx"`
	Reason     uint8 `json:"reason"`
}

// DRSDisabled carries a reason in the 2025 format only.
type DRSDisabled struct {
	Reason uint8 `json:"reason"`
}

type TeamMateInPits struct {
	VehicleIdx uint8 `json:"vehicle_idx"`
}

type RaceWinner struct {
	VehicleIdx uint8 `json:"vehicle_idx"`
}

type Penalty struct {
	PenaltyType      uint8 `json:"penalty_type"`
	InfringementType uint8 `json:"infringement_type"`
	VehicleIdx       uint8 `json:"vehicle_idx"`
	OtherVehicleIdx  uint8 `json:"other_vehicle_idx"`
	Time             uint8 `json:"time"`
	LapNum           uint8 `json:"lap_num"`
	PlacesGained     uint8 `json:"places_gained"`
}

type SpeedTrap struct {
	VehicleIdx                 uint8   `json:"vehicle_idx"`
	Speed                      float32 `json:"speed"`
	IsOverallFastestInSession  uint8   `json:"is_overall_fastest_in_session"`
	IsDriverFastestInSession   uint8   `json:"is_driver_fastest_in_session"`
	FastestVehicleIdxInSession uint8   `json:"fastest_vehicle_idx_in_session"`
	FastestSpeedInSession      float32 `json:"fastest_speed_in_session"`
}

type StartLights struct {
	NumLights uint8 `json:"num_lights"`
}

type DriveThroughServed struct {
	VehicleIdx uint8 `json:"vehicle_idx"`
}

// StopGoServed.StopTime is only populated by the 2025 format.
type StopGoServed struct {
	VehicleIdx uint8   `json:"vehicle_idx"`
	StopTime   float32 `json:"stop_time"`
}

type Flashback struct {
	FrameIdentifier uint32  `json:"frame_identifier"`
	SessionTime     float32 `json:"session_time"`
}

type Buttons struct {
	ButtonStatus uint32 `json:"button_status"`
}

type Overtake struct {
	OvertakingVehicleIdx     uint8 `json:"overtaking_vehicle_idx"`
	BeingOvertakenVehicleIdx uint8 `json:"being_overtaken_vehicle_idx"`
}

type SafetyCar struct {
	SafetyCarType uint8 `json:"safety_car_type"`
	EventType     uint8 `json:"event_type"`
}

type Collision struct {
	Vehicle1Idx uint8 `json:"vehicle1_idx"`
	Vehicle2Idx uint8 `json:"vehicle2_idx"`
}

func (*FastestLap) isEventDetails()         {}
func (*Retirement) isEventDetails()         {}
func (*DRSDisabled) isEventDetails()        {}
func (*TeamMateInPits) isEventDetails()     {}
func (*RaceWinner) isEventDetails()         {}
func (*Penalty) isEventDetails()            {}
func (*SpeedTrap) isEventDetails()          {}
func (*StartLights) isEventDetails()        {}
func (*DriveThroughServed) isEventDetails() {}
func (*StopGoServed) isEventDetails()       {}
func (*Flashback) isEventDetails()          {}
func (*Buttons) isEventDetails()            {}
func (*Overtake) isEventDetails()           {}
func (*SafetyCar) isEventDetails()          {}
func (*Collision) isEventDetails()          {}
