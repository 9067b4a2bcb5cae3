package packet

import "fmt"

// NumCars is the fixed number of car slots in per-car arrays.
const NumCars = 22

// ID is the packet-type discriminant carried in the header.
type ID uint8

// Known packet ids. LapPositions exists only in the 2025 format.
const (
	IDMotion ID = iota
	IDSession
	IDLapData
	IDEvent
	IDParticipants
	IDCarSetups
	IDCarTelemetry
	IDCarStatus
	IDFinalClassification
	IDLobbyInfo
	IDCarDamage
	IDSessionHistory
	IDTyreSets
	IDMotionEx
	IDTimeTrial
	IDLapPositions
)

var idNames = [...]string{
	IDMotion:              "motion",
	IDSession:             "session",
	IDLapData:             "lap_data",
	IDEvent:               "event",
	IDParticipants:        "participants",
	IDCarSetups:           "car_setups",
	IDCarTelemetry:        "car_telemetry",
	IDCarStatus:           "car_status",
	IDFinalClassification: "final_classification",
	IDLobbyInfo:           "lobby_info",
	IDCarDamage:           "car_damage",
	IDSessionHistory:      "session_history",
	IDTyreSets:            "tyre_sets",
	IDMotionEx:            "motion_ex",
	IDTimeTrial:           "time_trial",
	IDLapPositions:        "lap_positions",
}

// String returns the snake_case name used in JSON payloads and subjects.
func (id ID) String() string {
	if int(id) < len(idNames) {
		return idNames[id]
	}
	return fmt.Sprintf("unknown_%d", uint8(id))
}
