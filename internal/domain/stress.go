package domain

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// StrategyKind names a baseline strategy in configuration.
type StrategyKind string

const (
	StrategyRollingMean     StrategyKind = "rolling_mean"
	StrategyFixedConstant   StrategyKind = "fixed_constant"
	StrategyVectorMagnitude StrategyKind = "vector_magnitude"
	StrategyMedian          StrategyKind = "median"
)

// StrategyKinds lists every known strategy.
func StrategyKinds() []StrategyKind {
	return []StrategyKind{StrategyRollingMean, StrategyFixedConstant, StrategyVectorMagnitude, StrategyMedian}
}

// Valid reports whether k names a known strategy.
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyRollingMean, StrategyFixedConstant, StrategyVectorMagnitude, StrategyMedian:
		return true
	default:
		return false
	}
}

const (
	// baselineEpsilon floors the rolling-mean divisor so an all-zero window cannot divide by zero.
	baselineEpsilon = 1e-4

	// isotropicProjection estimates one planar component from the total field
	// when bx/by are unavailable (cos 45°).
	isotropicProjection = 0.707
)

// ScoredRow is an AlignedRow with its baseline and stress.
type ScoredRow struct {
	AlignedRow
	// Magnitude is the SPACE bt cell as loaded; a missing cell stays missing here
	// even though scoring used zero.
	Magnitude Value
	Baseline  float64
	Stress    float64
}

// Strategy computes baselines and stress for a whole run. Implementations
// must be deterministic and must not read anything but the rows given.
type Strategy interface {
	Kind() StrategyKind
	// Bounded reports whether stress is confined to a fixed range.
	Bounded() bool
	Score(rows []AlignedRow) []ScoredRow
	String() string
	slog.LogValuer
}

// NewStrategy builds the strategy selected by cfg.
func NewStrategy(cfg RunConfig) (Strategy, error) {
	switch cfg.Strategy {
	case StrategyRollingMean:
		if cfg.Window < 1 {
			return nil, fmt.Errorf("rolling window must be at least 1, got %d", cfg.Window)
		}
		return RollingMean{Window: cfg.Window}, nil
	case StrategyFixedConstant:
		if cfg.Constant <= 0 {
			return nil, fmt.Errorf("fixed baseline must be positive, got %g", cfg.Constant)
		}
		return FixedConstant{Value: cfg.Constant}, nil
	case StrategyVectorMagnitude:
		if cfg.Constant <= 0 {
			return nil, fmt.Errorf("vector constant must be positive, got %g", cfg.Constant)
		}
		return VectorMagnitude{Constant: cfg.Constant}, nil
	case StrategyMedian:
		return Median{}, nil
	default:
		return nil, fmt.Errorf("unknown baseline strategy %q", cfg.Strategy)
	}
}

// RatioStress is |value - baseline| / baseline.
func RatioStress(value, baseline float64) float64 {
	return math.Abs(value-baseline) / baseline
}

// SaturatingStress is r / (1 + r²). It peaks at 0.5 for r = 1 and decays to 0
// as r grows.
func SaturatingStress(r float64) float64 {
	return r / (1 + r*r)
}

// RollingMean compares each sample to the mean of the trailing Window samples
// ending at it. The first Window-1 samples use whatever history exists.
type RollingMean struct {
	Window int
}

func (s RollingMean) Kind() StrategyKind { return StrategyRollingMean }
func (s RollingMean) Bounded() bool      { return false }

func (s RollingMean) String() string {
	return fmt.Sprintf("%s(window=%d)", s.Kind(), s.Window)
}

func (s RollingMean) LogValue() slog.Value {
	return slog.GroupValue(slog.String("strategy", string(s.Kind())), slog.Int("window", s.Window))
}

func (s RollingMean) Score(rows []AlignedRow) []ScoredRow {
	mags := magnitudes(rows)
	out := make([]ScoredRow, len(rows))
	for i, row := range rows {
		start := max(0, i-s.Window+1)
		n := float64(i + 1 - start)
		// Accumulate the mean term by term; a raw sum overflows for large
		// finite magnitudes.
		var mean float64
		for _, m := range mags[start : i+1] {
			mean += m / n
		}
		baseline := math.Max(mean, baselineEpsilon)
		out[i] = scored(row, baseline, math.Abs(mags[i]-mean)/baseline)
	}
	return out
}

// FixedConstant compares every sample to one configured baseline.
type FixedConstant struct {
	Value float64
}

func (s FixedConstant) Kind() StrategyKind { return StrategyFixedConstant }
func (s FixedConstant) Bounded() bool      { return false }

func (s FixedConstant) String() string {
	return fmt.Sprintf("%s(baseline=%g)", s.Kind(), s.Value)
}

func (s FixedConstant) LogValue() slog.Value {
	return slog.GroupValue(slog.String("strategy", string(s.Kind())), slog.Float64("baseline", s.Value))
}

func (s FixedConstant) Score(rows []AlignedRow) []ScoredRow {
	mags := magnitudes(rows)
	out := make([]ScoredRow, len(rows))
	for i, row := range rows {
		out[i] = scored(row, s.Value, RatioStress(mags[i], s.Value))
	}
	return out
}

// Median compares every sample to the median magnitude of the run. A zero
// median is replaced by 1.
type Median struct{}

func (s Median) Kind() StrategyKind { return StrategyMedian }
func (s Median) Bounded() bool      { return false }
func (s Median) String() string     { return string(s.Kind()) }

func (s Median) LogValue() slog.Value {
	return slog.GroupValue(slog.String("strategy", string(s.Kind())))
}

func (s Median) Score(rows []AlignedRow) []ScoredRow {
	mags := magnitudes(rows)
	baseline := median(mags)
	if baseline == 0 {
		baseline = 1
	}
	out := make([]ScoredRow, len(rows))
	for i, row := range rows {
		out[i] = scored(row, baseline, RatioStress(mags[i], baseline))
	}
	return out
}

// VectorMagnitude projects the planar field onto r = |(bx, by)| / Constant and
// applies the saturating transform. Rows without both components fall back to
// r = bt * 0.707 / Constant. The recorded baseline is Constant.
type VectorMagnitude struct {
	Constant float64
}

func (s VectorMagnitude) Kind() StrategyKind { return StrategyVectorMagnitude }
func (s VectorMagnitude) Bounded() bool      { return true }

func (s VectorMagnitude) String() string {
	return fmt.Sprintf("%s(constant=%g)", s.Kind(), s.Constant)
}

func (s VectorMagnitude) LogValue() slog.Value {
	return slog.GroupValue(slog.String("strategy", string(s.Kind())), slog.Float64("constant", s.Constant))
}

func (s VectorMagnitude) Score(rows []AlignedRow) []ScoredRow {
	out := make([]ScoredRow, len(rows))
	for i, row := range rows {
		out[i] = scored(row, s.Constant, SaturatingStress(s.ratio(row)))
	}
	return out
}

func (s VectorMagnitude) ratio(row AlignedRow) float64 {
	bx, okX := row.Space.Field(FieldBx)
	by, okY := row.Space.Field(FieldBy)
	if okX && okY && !bx.IsMissing() && !by.IsMissing() {
		return math.Hypot(bx.OrZero(), by.OrZero()) / s.Constant
	}
	bt, _ := row.Space.Field(FieldMagnitude)
	return math.Abs(bt.OrZero()) * isotropicProjection / s.Constant
}

// magnitudes extracts the SPACE bt of every row, missing cells as zero.
func magnitudes(rows []AlignedRow) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		v, _ := row.Space.Field(FieldMagnitude)
		out[i] = v.OrZero()
	}
	return out
}

func scored(row AlignedRow, baseline, stress float64) ScoredRow {
	mag, _ := row.Space.Field(FieldMagnitude)
	switch {
	case math.IsNaN(stress):
		stress = 0
	case math.IsInf(stress, 0):
		stress = math.MaxFloat64
	}
	return ScoredRow{AlignedRow: row, Magnitude: mag, Baseline: baseline, Stress: stress}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// StressEngine applies the strategy chosen at construction to aligned rows.
type StressEngine struct {
	strategy Strategy
	logger   *slog.Logger
}

// NewStressEngine builds the engine for cfg's strategy.
func NewStressEngine(cfg RunConfig, logger *slog.Logger) (*StressEngine, error) {
	strategy, err := NewStrategy(cfg)
	if err != nil {
		return nil, err
	}
	return &StressEngine{strategy: strategy, logger: logger}, nil
}

// Strategy returns the strategy the engine was built with.
func (e *StressEngine) Strategy() Strategy {
	return e.strategy
}

// Score produces one ScoredRow per aligned row, in the same order.
func (e *StressEngine) Score(rows []AlignedRow) []ScoredRow {
	out := e.strategy.Score(rows)

	missing := 0
	for _, r := range out {
		if r.Magnitude.IsMissing() {
			missing++
		}
	}
	e.logger.Info("stress computed",
		"baseline", e.strategy,
		"bounded", e.strategy.Bounded(),
		"rows", len(out),
		"missing_magnitudes", missing,
	)
	return out
}
