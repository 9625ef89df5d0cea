package model

// BeatMarker is one beat detected by an external analysis service.
// Time is in timeline seconds, Strength in [0,1]. Consumed read-only
// by the auto-splice planner.
type BeatMarker struct {
	Time       float64 `json:"time"`
	Strength   float64 `json:"strength"`
	IsDownbeat bool    `json:"isDownbeat"`
}
