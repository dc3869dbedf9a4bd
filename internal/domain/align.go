package domain

import (
	"fmt"
	"sort"
	"time"
)

// AlignedRow joins one SPACE point and one GROUND point that fall in the same minute.
type AlignedRow struct {
	Time   time.Time
	Space  TimePoint
	Ground TimePoint
}

// TruncateToMinute floors t to its UTC minute. Floor rather than round keeps
// feeds sampled at different second offsets in the same bucket.
func TruncateToMinute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// Align inner-joins the two series on minute-truncated timestamps. When
// several points of one feed land in the same minute the chronologically last
// one is kept, so the result never exceeds min(|space|, |ground|) rows.
// Rows are returned in ascending time order. An empty join returns
// ErrNoTimeOverlap.
func Align(space, ground Series) ([]AlignedRow, error) {
	if space.Source != SourceSpace || ground.Source != SourceGround {
		return nil, fmt.Errorf("align: want %s and %s series, got %s and %s",
			SourceSpace, SourceGround, space.Source, ground.Source)
	}

	groundByMinute := bucketByMinute(ground.Points)
	spaceByMinute := bucketByMinute(space.Points)

	rows := make([]AlignedRow, 0, min(len(spaceByMinute), len(groundByMinute)))
	for minute, sp := range spaceByMinute {
		gp, ok := groundByMinute[minute]
		if !ok {
			continue
		}
		rows = append(rows, AlignedRow{Time: time.Unix(minute, 0).UTC(), Space: sp, Ground: gp})
	}
	if len(rows) == 0 {
		return nil, ErrNoTimeOverlap
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Time.Before(rows[j].Time)
	})
	return rows, nil
}

// bucketByMinute indexes points by the Unix second of their truncated minute.
// Points are chronological, so the last point of a minute wins.
func bucketByMinute(points []TimePoint) map[int64]TimePoint {
	out := make(map[int64]TimePoint, len(points))
	for _, p := range points {
		out[TruncateToMinute(p.Time).Unix()] = p
	}
	return out
}
