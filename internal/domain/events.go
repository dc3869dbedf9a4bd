package domain

import "sort"

// Event is a scored row selected for reporting, together with the ground
// response shown beside it.
type Event struct {
	ScoredRow
	// GroundField is the canonical ground field the response came from, or ""
	// when the ground artifact carries none of them.
	GroundField    string
	GroundResponse Value
}

// Extraction is the EventExtractor output for one run.
type Extraction struct {
	Threshold float64
	// Violations are rows with stress strictly above Threshold, in time order.
	Violations []Event
	// Top holds the K highest-stress rows regardless of Threshold, ordered by
	// stress descending and then by time ascending.
	Top            []Event
	Peak           float64
	Rows           int
	MissingSamples int
}

// ExtractEvents selects threshold violations and the top-K rows.
func ExtractEvents(rows []ScoredRow, threshold float64, topK int) Extraction {
	ex := Extraction{Threshold: threshold, Rows: len(rows)}

	for _, row := range rows {
		if row.Magnitude.IsMissing() {
			ex.MissingSamples++
		}
		if row.Stress > ex.Peak {
			ex.Peak = row.Stress
		}
		if row.Stress > threshold {
			ex.Violations = append(ex.Violations, newEvent(row))
		}
	}

	ranked := make([]ScoredRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Stress != ranked[j].Stress {
			return ranked[i].Stress > ranked[j].Stress
		}
		return ranked[i].Time.Before(ranked[j].Time)
	})
	if topK > len(ranked) {
		topK = len(ranked)
	}
	if topK < 0 {
		topK = 0
	}
	ex.Top = make([]Event, 0, topK)
	for _, row := range ranked[:topK] {
		ex.Top = append(ex.Top, newEvent(row))
	}
	return ex
}

func newEvent(row ScoredRow) Event {
	field, value := GroundResponse(row.Ground)
	return Event{ScoredRow: row, GroundField: field, GroundResponse: value}
}

// GroundResponse picks the ground reading shown for an event: the first of
// total field, horizontal intensity, declination that has a value. When the
// columns exist but every cell is missing, the first existing field is
// returned with a missing Value. When none exist, field is "".
func GroundResponse(p TimePoint) (field string, value Value) {
	for _, name := range groundResponsePriority {
		v, ok := p.Field(name)
		if !ok {
			continue
		}
		if !v.IsMissing() {
			return name, v
		}
		if field == "" {
			field = name
		}
	}
	return field, Missing
}
