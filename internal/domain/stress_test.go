package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RunConfig
		want    Strategy
		wantErr bool
	}{
		{name: "rolling mean", cfg: RunConfig{Strategy: StrategyRollingMean, Window: 60}, want: RollingMean{Window: 60}},
		{name: "fixed constant", cfg: RunConfig{Strategy: StrategyFixedConstant, Constant: 10}, want: FixedConstant{Value: 10}},
		{name: "vector magnitude", cfg: RunConfig{Strategy: StrategyVectorMagnitude, Constant: 5}, want: VectorMagnitude{Constant: 5}},
		{name: "median", cfg: RunConfig{Strategy: StrategyMedian}, want: Median{}},
		{name: "zero window", cfg: RunConfig{Strategy: StrategyRollingMean}, wantErr: true},
		{name: "zero constant", cfg: RunConfig{Strategy: StrategyFixedConstant}, wantErr: true},
		{name: "negative vector constant", cfg: RunConfig{Strategy: StrategyVectorMagnitude, Constant: -1}, wantErr: true},
		{name: "unknown", cfg: RunConfig{Strategy: "auto"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStrategy(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRollingMean_WindowOfOneYieldsZeroStress(t *testing.T) {
	rows := alignedRows(3.1, 0, 7.7, 0.3, 0, 12.9, 9.99, 4.2)

	scored := RollingMean{Window: 1}.Score(rows)

	require.Len(t, scored, len(rows))
	for _, r := range scored {
		assert.Zero(t, r.Stress, "row %s", r.Time)
	}
}

func TestRollingMean_GrowingWindow(t *testing.T) {
	scored := RollingMean{Window: 3}.Score(alignedRows(2, 4, 6, 8))

	// Baselines: mean(2), mean(2,4), mean(2,4,6), mean(4,6,8).
	wantBaselines := []float64{2, 3, 4, 6}
	for i, want := range wantBaselines {
		assert.InDelta(t, want, scored[i].Baseline, 1e-12, "baseline %d", i)
	}
	assert.InDelta(t, 0.0, scored[0].Stress, 1e-12)
	assert.InDelta(t, 1.0/3.0, scored[1].Stress, 1e-12)
	assert.InDelta(t, 0.5, scored[2].Stress, 1e-12)
	assert.InDelta(t, 2.0/6.0, scored[3].Stress, 1e-12)
}

func TestRollingMean_ZeroBaselineIsFloored(t *testing.T) {
	scored := RollingMean{Window: 60}.Score(alignedRows(0, 0, 0))

	for _, r := range scored {
		assert.InDelta(t, baselineEpsilon, r.Baseline, 1e-15)
		assert.Zero(t, r.Stress)
		assert.False(t, math.IsNaN(r.Stress))
	}
}

func TestRollingMean_ZeroAfterSteadyContext(t *testing.T) {
	scored := RollingMean{Window: 2}.Score(alignedRows(0, 0, 10, 0))

	assert.Zero(t, scored[1].Stress)
	assert.InDelta(t, 1.0, scored[2].Stress, 1e-12)
	assert.InDelta(t, 5.0, scored[3].Baseline, 1e-12)
	assert.InDelta(t, 1.0, scored[3].Stress, 1e-12)
}

func TestRollingMean_LargeMagnitudesStayFinite(t *testing.T) {
	scored := RollingMean{Window: 60}.Score(alignedRows(1e308, 1e308, 1e308))

	for _, r := range scored {
		assert.False(t, math.IsInf(r.Baseline, 0), "baseline at %s", r.Time)
		assert.False(t, math.IsNaN(r.Stress), "stress at %s", r.Time)
		assert.InDelta(t, 0.0, r.Stress, 1e-12)
	}
}

func TestRollingMean_UnboundedRatioIsClamped(t *testing.T) {
	scored := RollingMean{Window: 2}.Score(alignedRows(-1e308, 1e308))

	assert.Equal(t, math.MaxFloat64, scored[1].Stress)

	ex := ExtractEvents(scored, DefaultThreshold, 2)
	assert.Equal(t, math.MaxFloat64, ex.Peak)
	assert.Equal(t, minute(1), ex.Top[0].Time)
}

func TestRollingMean_NoMagnitudeColumnIsStable(t *testing.T) {
	points := make([]TimePoint, 10)
	for i := range points {
		points[i] = TimePoint{Time: minute(i), Values: map[string]Value{"bx_gsm": Known(6), "by_gsm": Known(-8)}}
	}
	space := NewSeries(SourceSpace, "dscovr.csv", []string{"bx_gsm", "by_gsm"}, points)
	require.Equal(t, []string{FieldMagnitude}, space.MissingColumns)
	rows, err := Align(space, constantGround(10, 52000))
	require.NoError(t, err)

	ex := ExtractEvents(RollingMean{Window: 60}.Score(rows), DefaultThreshold, DefaultTopK)

	assert.Empty(t, ex.Violations)
	assert.Zero(t, ex.Peak)
	assert.Equal(t, 10, ex.MissingSamples)
}

func TestRollingMean_OutlierAgainstSteadyContext(t *testing.T) {
	bts := make([]float64, 120)
	for i := range bts {
		bts[i] = 10
	}
	bts[90] = 20

	scored := RollingMean{Window: 60}.Score(alignedRows(bts...))

	assert.InDelta(t, 1.0, scored[90].Stress, 0.05)
	for i, r := range scored {
		if i == 90 {
			continue
		}
		assert.LessOrEqual(t, r.Stress, DefaultThreshold, "row %d", i)
	}
}

func TestFixedConstant_MonotonicInDeviation(t *testing.T) {
	s := FixedConstant{Value: 10}
	scored := s.Score(alignedRows(10, 10.5, 9, 12, 5, 25))

	prev := -1.0
	for _, r := range scored {
		assert.Greater(t, r.Stress, prev)
		assert.InDelta(t, 10.0, r.Baseline, 1e-12)
		prev = r.Stress
	}
	assert.InDelta(t, 1.5, scored[5].Stress, 1e-12)
}

func TestMedian_Baseline(t *testing.T) {
	scored := Median{}.Score(alignedRows(4, 8, 6, 100))

	for _, r := range scored {
		assert.InDelta(t, 7.0, r.Baseline, 1e-12)
	}
	assert.InDelta(t, 93.0/7.0, scored[3].Stress, 1e-12)
}

func TestMedian_ZeroBaselineReplacedByOne(t *testing.T) {
	scored := Median{}.Score(alignedRows(0, 0, 3))

	assert.InDelta(t, 1.0, scored[0].Baseline, 1e-12)
	assert.InDelta(t, 2.0, scored[2].Stress, 1e-12)
}

func TestSaturatingStress_Bounded(t *testing.T) {
	tests := []struct {
		r    float64
		want float64
	}{
		{r: 0, want: 0},
		{r: 1, want: 0.5},
		{r: 10, want: 10.0 / 101.0},
		{r: 1000, want: 1000.0 / 1_000_001.0},
	}

	for _, tt := range tests {
		got := SaturatingStress(tt.r)
		assert.InDelta(t, tt.want, got, 1e-12, "r=%g", tt.r)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 0.5)
	}
	assert.Less(t, SaturatingStress(1000), SaturatingStress(10))
	assert.Less(t, SaturatingStress(1e9), 1e-8)
}

func TestVectorMagnitude_UsesPlanarComponents(t *testing.T) {
	points := []TimePoint{
		{Time: minute(0), Values: map[string]Value{"bt": Known(9), "bx_gsm": Known(3), "by_gsm": Known(4)}},
		{Time: minute(1), Values: map[string]Value{"bt": Known(9), "bx_gsm": Missing, "by_gsm": Known(4)}},
	}
	space := NewSeries(SourceSpace, "dscovr.csv", []string{"bx_gsm", "by_gsm", "bt"}, points)
	rows, err := Align(space, constantGround(2, 52000))
	require.NoError(t, err)

	scored := VectorMagnitude{Constant: 5}.Score(rows)

	// |(3,4)| / 5 = 1 -> 0.5
	assert.InDelta(t, 0.5, scored[0].Stress, 1e-12)
	// bx missing: fall back to 9 * 0.707 / 5
	r := 9 * 0.707 / 5
	assert.InDelta(t, r/(1+r*r), scored[1].Stress, 1e-12)
	assert.InDelta(t, 5.0, scored[1].Baseline, 1e-12)
}

func TestVectorMagnitude_FallsBackWithoutComponentColumns(t *testing.T) {
	scored := VectorMagnitude{Constant: 10}.Score(alignedRows(10))

	r := 0.707
	assert.InDelta(t, r/(1+r*r), scored[0].Stress, 1e-12)
}

func TestStrategies_MissingMagnitudeScoresAsZero(t *testing.T) {
	points := []TimePoint{
		spacePoint(minute(0), 10),
		{Time: minute(1), Values: map[string]Value{"bt": Missing}},
		spacePoint(minute(2), 10),
	}
	rows, err := Align(spaceSeries(points...), constantGround(3, 52000))
	require.NoError(t, err)

	strategies := []Strategy{
		RollingMean{Window: 60},
		FixedConstant{Value: 10},
		VectorMagnitude{Constant: 10},
		Median{},
	}
	for _, s := range strategies {
		t.Run(string(s.Kind()), func(t *testing.T) {
			scored := s.Score(rows)
			require.Len(t, scored, 3)
			assert.True(t, scored[1].Magnitude.IsMissing(), "missing cell stays visible")
			for _, r := range scored {
				assert.False(t, math.IsNaN(r.Stress))
				assert.False(t, math.IsInf(r.Stress, 0))
			}
		})
	}
}

func TestStressEngine_PreservesRowOrder(t *testing.T) {
	engine, err := NewStressEngine(RunConfig{Strategy: StrategyFixedConstant, Constant: 10}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, StrategyFixedConstant, engine.Strategy().Kind())

	rows := alignedRows(12, 8, 15)
	scored := engine.Score(rows)

	require.Len(t, scored, 3)
	for i := range rows {
		assert.Equal(t, rows[i].Time, scored[i].Time)
	}
	assert.Equal(t, minute(0), scored[0].Time)
	assert.True(t, scored[2].Time.After(scored[1].Time))
	assert.Equal(t, time.UTC, scored[0].Time.Location())
}
