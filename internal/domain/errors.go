package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataAvailable means a required input artifact does not exist yet.
	// The run aborts cleanly without writing anything.
	ErrNoDataAvailable = errors.New("no data available")

	// ErrNoTimeOverlap means the two feeds share no minute. The run emits the
	// buffering placeholder report instead of a verdict.
	ErrNoTimeOverlap = errors.New("no time overlap between space and ground series")

	// ErrInsufficientSnaps is returned by AnalyzeRhythm when fewer than two
	// samples cross the threshold.
	ErrInsufficientSnaps = errors.New("not enough snaps to establish a rhythm")

	// ErrNoRhythm is returned by AnalyzeRhythm when every interval between
	// snaps is longer than the gap limit.
	ErrNoRhythm = errors.New("no rhythm detected: snaps are too sporadic")
)

// LoadError reports an input artifact that exists but cannot be parsed.
// It is fatal for the run.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
