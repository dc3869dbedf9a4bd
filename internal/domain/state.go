package domain

import "time"

// StatePoint is one row of the persisted state table.
type StatePoint struct {
	Time      time.Time
	Magnitude Value
	Baseline  float64
	Stress    float64
}

// StateTable flattens scored rows for the state recorder, keeping their
// chronological order.
func StateTable(rows []ScoredRow) []StatePoint {
	out := make([]StatePoint, len(rows))
	for i, r := range rows {
		out[i] = StatePoint{
			Time:      r.Time,
			Magnitude: r.Magnitude,
			Baseline:  r.Baseline,
			Stress:    r.Stress,
		}
	}
	return out
}
