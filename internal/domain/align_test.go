package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateToMinute_Floors(t *testing.T) {
	at := time.Date(2024, time.May, 10, 17, 3, 59, 900_000_000, time.UTC)
	assert.Equal(t, time.Date(2024, time.May, 10, 17, 3, 0, 0, time.UTC), TruncateToMinute(at))

	eastern := time.FixedZone("EST", -5*3600)
	local := time.Date(2024, time.May, 10, 12, 3, 30, 0, eastern)
	assert.Equal(t, time.Date(2024, time.May, 10, 17, 3, 0, 0, time.UTC), TruncateToMinute(local))
}

func TestAlign_JoinsAcrossSubMinuteJitter(t *testing.T) {
	space := constantSpace(10, 5, 37*time.Second)
	ground := constantGround(10, 52000)

	rows, err := Align(space, ground)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	for i, row := range rows {
		assert.Equal(t, minute(i), row.Time)
		assert.Equal(t, SourceSpace, row.Space.Source)
		assert.Equal(t, SourceGround, row.Ground.Source)
		assert.Contains(t, row.Space.Values, "bt")
		assert.Contains(t, row.Ground.Values, "F")
	}
}

func TestAlign_InnerJoinOnly(t *testing.T) {
	space := spaceSeries(spacePoint(minute(0), 1), spacePoint(minute(1), 2), spacePoint(minute(5), 3))
	ground := groundSeries(groundPoint(minute(1), 10), groundPoint(minute(5), 11), groundPoint(minute(9), 12))

	rows, err := Align(space, ground)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, minute(1), rows[0].Time)
	assert.Equal(t, minute(5), rows[1].Time)
}

func TestAlign_RowCountBoundedBySmallerSeries(t *testing.T) {
	// Ten-second SPACE cadence: six points per minute collapse into one row.
	points := make([]TimePoint, 0, 60)
	for i := range 60 {
		points = append(points, spacePoint(t0.Add(time.Duration(i)*10*time.Second), float64(i)))
	}
	space := spaceSeries(points...)
	ground := constantGround(30, 52000)

	rows, err := Align(space, ground)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), min(space.Len(), ground.Len()))
	assert.Len(t, rows, 10)

	// Last sample of the first minute wins.
	bt, _ := rows[0].Space.Field(FieldMagnitude)
	assert.InDelta(t, 5.0, bt.OrZero(), 1e-12)

	common := make(map[time.Time]bool)
	for _, p := range ground.Points {
		common[TruncateToMinute(p.Time)] = true
	}
	for _, row := range rows {
		assert.True(t, common[row.Time], "row %s not present in ground series", row.Time)
	}
}

func TestAlign_DisjointRangesReturnNoOverlap(t *testing.T) {
	space := constantSpace(30, 5, 0)
	ground := groundSeries(groundPoint(minute(120), 1), groundPoint(minute(121), 2))

	rows, err := Align(space, ground)
	require.ErrorIs(t, err, ErrNoTimeOverlap)
	assert.Empty(t, rows)
}

func TestAlign_RejectsSwappedRoles(t *testing.T) {
	_, err := Align(constantGround(3, 1), constantSpace(3, 1, 0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTimeOverlap)
}
