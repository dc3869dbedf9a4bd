package domain

import (
	"errors"
	"fmt"
	"maps"
)

// Analysis defaults.
const (
	DefaultWindow    = 60
	DefaultConstant  = 10.0
	DefaultThreshold = 0.15
	DefaultTopK      = 5
)

// RunConfig is the immutable analysis configuration for one run. Every
// component that interprets stress receives it through its constructor.
type RunConfig struct {
	Strategy StrategyKind
	// Window is the trailing sample count for RollingMean.
	Window int
	// Constant is the baseline for FixedConstant and the normalizer for VectorMagnitude.
	Constant float64
	// Threshold is the snap limit used when Thresholds has no entry for Strategy.
	Threshold  float64
	Thresholds map[StrategyKind]float64
	TopK       int
}

// DefaultRunConfig returns the rolling-mean configuration of the reference deployment.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Strategy:  StrategyRollingMean,
		Window:    DefaultWindow,
		Constant:  DefaultConstant,
		Threshold: DefaultThreshold,
		TopK:      DefaultTopK,
	}
}

// WithThresholds returns a copy of c with its own override map.
func (c RunConfig) WithThresholds(overrides map[StrategyKind]float64) RunConfig {
	c.Thresholds = maps.Clone(overrides)
	return c
}

// SnapThreshold resolves the threshold for the configured strategy.
func (c RunConfig) SnapThreshold() float64 {
	if t, ok := c.Thresholds[c.Strategy]; ok {
		return t
	}
	return c.Threshold
}

// Validate checks that the configuration can drive a run.
func (c RunConfig) Validate() error {
	if !c.Strategy.Valid() {
		return fmt.Errorf("unknown baseline strategy %q", c.Strategy)
	}
	if c.Strategy == StrategyRollingMean && c.Window < 1 {
		return errors.New("rolling window must be at least 1")
	}
	if (c.Strategy == StrategyFixedConstant || c.Strategy == StrategyVectorMagnitude) && c.Constant <= 0 {
		return errors.New("baseline constant must be positive")
	}
	if c.Threshold < 0 {
		return errors.New("snap threshold must not be negative")
	}
	for kind, t := range c.Thresholds {
		if !kind.Valid() {
			return fmt.Errorf("threshold override for unknown strategy %q", kind)
		}
		if t < 0 {
			return fmt.Errorf("snap threshold for %s must not be negative", kind)
		}
	}
	if c.TopK < 1 {
		return errors.New("top-k must be at least 1")
	}
	return nil
}
