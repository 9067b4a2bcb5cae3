package packet

import "fmt"

var trackNames = map[int8]string{
	0:  "Melbourne",
	1:  "Paul Ricard",
	2:  "Shanghai",
	3:  "Sakhir (Bahrain)",
	4:  "Catalunya",
	5:  "Monaco",
	6:  "Montreal",
	7:  "Silverstone",
	8:  "Hockenheim",
	9:  "Hungaroring",
	10: "Spa",
	11: "Monza",
	12: "Singapore",
	13: "Suzuka",
	14: "Abu Dhabi",
	15: "Texas",
	16: "Brazil",
	17: "Austria",
	18: "Sochi",
	19: "Mexico",
	20: "Baku (Azerbaijan)",
	21: "Sakhir Short",
	22: "Silverstone Short",
	23: "Texas Short",
	24: "Suzuka Short",
	25: "Hanoi",
	26: "Zandvoort",
	27: "Imola",
	28: "Portimão",
	29: "Jeddah",
	30: "Miami",
	31: "Las Vegas",
	32: "Losail",
	39: "Silverstone (Reverse)",
	40: "Austria (Reverse)",
	41: "Zandvoort (Reverse)",
}

// TrackName returns the track name for id, "Unknown" when unmapped.
func TrackName(id int8) string {
	if n, ok := trackNames[id]; ok {
		return n
	}
	return "Unknown"
}

var sessionTypeNames = [...]string{
	"Unknown",
	"Practice 1",
	"Practice 2",
	"Practice 3",
	"Short Practice",
	"Qualifying 1",
	"Qualifying 2",
	"Qualifying 3",
	"Short Qualifying",
	"One-Shot Qualifying",
	"Sprint Shootout 1",
	"Sprint Shootout 2",
	"Sprint Shootout 3",
	"Short Sprint Shootout",
	"One-Shot Sprint Shootout",
	"Race",
	"Race 2",
	"Race 3",
	"Time Trial",
}

// SessionTypeName returns the session type name, "Unknown" when unmapped.
func SessionTypeName(t uint8) string {
	if int(t) < len(sessionTypeNames) {
		return sessionTypeNames[t]
	}
	return "Unknown"
}

var teamNames = [...]string{
	"Mercedes",
	"Ferrari",
	"Red Bull Racing",
	"Williams",
	"Aston Martin",
	"Alpine",
	"RB",
	"Haas",
	"McLaren",
	"Sauber",
}

// TeamName returns the team name, or "Team N" for unmapped ids.
func TeamName(id uint8) string {
	if int(id) < len(teamNames) {
		return teamNames[id]
	}
	return fmt.Sprintf("Team %d", id)
}

var tyreCompounds = map[uint8]string{
	7:  "Inter",
	8:  "Wet",
	16: "Soft",
	17: "Medium",
	18: "Hard",
}

// TyreCompoundName returns the visual compound name, "Unknown" when unmapped.
func TyreCompoundName(visual uint8) string {
	if n, ok := tyreCompounds[visual]; ok {
		return n
	}
	return "Unknown"
}

var resultStatusNames = [...]string{
	"Invalid",
	"Inactive",
	"Active",
	"Finished",
	"Did Not Finish",
	"Disqualified",
	"Not Classified",
	"Retired",
}

// ResultStatusName returns the classification status name.
func ResultStatusName(s uint8) string {
	if int(s) < len(resultStatusNames) {
		return resultStatusNames[s]
	}
	return "Unknown"
}
