// Command rhythm reads the newest GMVS state table and reports the spacing
// between stress snaps.
//
// Usage:
//
//	go run ./cmd/rhythm -state-dir results -threshold 0.15
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/adapter/filestore"
	"github.com/couchcryptid/geomag-stress-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stateDir := flag.String("state-dir", "results", "directory containing gmvs_state_*.csv tables")
	file := flag.String("file", "", "state table to read (default: newest in -state-dir)")
	threshold := flag.Float64("threshold", domain.DefaultThreshold, "stress above which a sample is a snap")
	maxGap := flag.Duration("max-gap", domain.DefaultRhythmMaxGap, "intervals at or above this are treated as data gaps")
	flag.Parse()

	path := *file
	if path == "" {
		latest, err := filestore.Latest(*stateDir, filestore.StatePattern, filestore.PolicyName)
		if err != nil {
			return err
		}
		path = latest
	}

	points, err := filestore.LoadState(path)
	if err != nil {
		return err
	}

	fmt.Printf("State table: %s (%d samples)\n", filepath.Base(path), len(points))
	r, err := domain.AnalyzeRhythm(points, *threshold, *maxGap)
	switch {
	case errors.Is(err, domain.ErrInsufficientSnaps):
		fmt.Printf("Snaps above %g: %d. Not enough to establish a rhythm.\n", *threshold, r.Snaps)
		return nil
	case errors.Is(err, domain.ErrNoRhythm):
		fmt.Printf("Snaps above %g: %d. All intervals exceed %s; snaps are sporadic.\n", *threshold, r.Snaps, *maxGap)
		return nil
	case err != nil:
		return err
	}

	fmt.Printf("Snaps above %g: %d\n", *threshold, r.Snaps)
	fmt.Printf("Intervals under %s: %d\n", *maxGap, len(r.Intervals))
	fmt.Printf("Mean interval:   %s\n", minutes(r.MeanMinutes))
	fmt.Printf("Median interval: %s\n", minutes(r.MedianMinutes))
	if r.MeanMinutes > 0 {
		fmt.Printf("Implied frequency: %.2f snaps/hour\n", 60/r.MeanMinutes)
	}
	return nil
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute)).Round(time.Second)
}
