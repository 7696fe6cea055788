// internal/identity/ranks.go
//
// Rank tier table and derivation.
// Progression: III (lowest) → II → I within each tier, 100 RP per
// division. Tier order: Lead → Pencil → Mechanical Pencil → Pen →
// Fountain Pen → Quill Pen.
package identity

// Rank is one division threshold.
type Rank struct {
	Name   string
	Points int
}

// Ranks lists every division in ascending RP order.
var Ranks = []Rank{
	{"Lead III", 0}, {"Lead II", 100}, {"Lead I", 200},
	{"Pencil III", 300}, {"Pencil II", 400}, {"Pencil I", 500},
	{"Mechanical Pencil III", 600}, {"Mechanical Pencil II", 700}, {"Mechanical Pencil I", 800},
	{"Pen III", 900}, {"Pen II", 1000}, {"Pen I", 1100},
	{"Fountain Pen III", 1200}, {"Fountain Pen II", 1300}, {"Fountain Pen I", 1400},
	{"Quill Pen III", 1500}, {"Quill Pen II", 1600}, {"Quill Pen I", 1700},
}

// RankInfo describes where an RP value sits within its division.
type RankInfo struct {
	Tier            string `json:"tier"`
	CurrentRP       int    `json:"currentRP"`
	TierFloor       int    `json:"tierFloor"`
	TierCeiling     int    `json:"tierCeiling"`
	ProgressPercent int    `json:"progressPercent"`
}

// TierFor returns the division name for an RP value.
func TierFor(rp int) string {
	return RankFor(rp).Tier
}

// RankFor returns full division info for an RP value. Negative values
// clamp to the lowest division.
func RankFor(rp int) RankInfo {
	idx := 0
	for i := len(Ranks) - 1; i >= 0; i-- {
		if rp >= Ranks[i].Points {
			idx = i
			break
		}
	}
	floor := Ranks[idx].Points
	ceiling := floor + 100
	if idx+1 < len(Ranks) {
		ceiling = Ranks[idx+1].Points
	}

	progress := rp - floor
	if progress < 0 {
		progress = 0
	}
	if progress > ceiling-floor {
		progress = ceiling - floor
	}
	return RankInfo{
		Tier:            Ranks[idx].Name,
		CurrentRP:       rp,
		TierFloor:       floor,
		TierCeiling:     ceiling,
		ProgressPercent: progress * 100 / (ceiling - floor),
	}
}
