package domain

import (
	"io"
	"log/slog"
	"time"
)

var t0 = time.Date(2024, time.May, 10, 17, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func minute(i int) time.Time {
	return t0.Add(time.Duration(i) * time.Minute)
}

func spacePoint(at time.Time, bt float64) TimePoint {
	return TimePoint{Time: at, Values: map[string]Value{"bt": Known(bt)}}
}

func spaceSeries(points ...TimePoint) Series {
	return NewSeries(SourceSpace, "dscovr_l1_harvest_20240510_170000.csv", []string{"bt"}, points)
}

func groundPoint(at time.Time, f float64) TimePoint {
	return TimePoint{Time: at, Values: map[string]Value{"F": Known(f)}}
}

func groundSeries(points ...TimePoint) Series {
	return NewSeries(SourceGround, "BOU_harvest_20240510_1700.csv", []string{"F"}, points)
}

// constantSpace returns n one-minute SPACE samples of bt, with offset seconds
// of phase jitter.
func constantSpace(n int, bt float64, offset time.Duration) Series {
	points := make([]TimePoint, n)
	for i := range points {
		points[i] = spacePoint(minute(i).Add(offset), bt)
	}
	return spaceSeries(points...)
}

func constantGround(n int, f float64) Series {
	points := make([]TimePoint, n)
	for i := range points {
		points[i] = groundPoint(minute(i), f)
	}
	return groundSeries(points...)
}

// alignedRows builds aligned rows straight from bt values, one per minute.
func alignedRows(bts ...float64) []AlignedRow {
	points := make([]TimePoint, len(bts))
	for i, bt := range bts {
		points[i] = spacePoint(minute(i), bt)
	}
	rows, err := Align(spaceSeries(points...), constantGround(len(bts), 52000))
	if err != nil {
		panic(err)
	}
	return rows
}
