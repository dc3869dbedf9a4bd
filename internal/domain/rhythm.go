package domain

import "time"

// DefaultRhythmMaxGap drops intervals that are really gaps in the data stream.
const DefaultRhythmMaxGap = 180 * time.Minute

// Rhythm summarizes the spacing between consecutive snaps.
type Rhythm struct {
	Snaps int
	// Intervals are the minute gaps between consecutive snaps shorter than the gap limit.
	Intervals     []float64
	MeanMinutes   float64
	MedianMinutes float64
}

// AnalyzeRhythm measures the intervals between samples whose stress exceeds
// threshold. Intervals of maxGap or longer are discarded before averaging.
func AnalyzeRhythm(points []StatePoint, threshold float64, maxGap time.Duration) (Rhythm, error) {
	var snaps []time.Time
	for _, p := range points {
		if p.Stress > threshold {
			snaps = append(snaps, p.Time)
		}
	}
	if len(snaps) < 2 {
		return Rhythm{Snaps: len(snaps)}, ErrInsufficientSnaps
	}

	r := Rhythm{Snaps: len(snaps)}
	var sum float64
	for i := 1; i < len(snaps); i++ {
		gap := snaps[i].Sub(snaps[i-1])
		if gap >= maxGap {
			continue
		}
		minutes := gap.Minutes()
		r.Intervals = append(r.Intervals, minutes)
		sum += minutes
	}
	if len(r.Intervals) == 0 {
		return r, ErrNoRhythm
	}

	r.MeanMinutes = sum / float64(len(r.Intervals))
	r.MedianMinutes = median(r.Intervals)
	return r, nil
}
