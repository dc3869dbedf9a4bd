// Command genmock writes synthetic DSCOVR and USGS harvest files for local
// runs and demos. It reads the generated files back through the real loader
// and analysis so the printed stats match what the service will report.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -space-dir data/raw/dscovr \
//	  -ground-dir data/raw/usgs \
//	  -minutes 360 -spikes 4
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/adapter/filestore"
	"github.com/couchcryptid/geomag-stress-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	spaceDir := flag.String("space-dir", "data/raw/dscovr", "output directory for the DSCOVR file")
	groundDir := flag.String("ground-dir", "data/raw/usgs", "output directory for the USGS file")
	station := flag.String("station", "BOU", "ground observatory code used in the file name")
	n := flag.Int("minutes", 360, "number of one-minute samples")
	spikes := flag.Int("spikes", 4, "number of injected field spikes")
	offset := flag.Duration("ground-offset", 0, "shift the ground series; use a large value to produce disjoint feeds")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *n <= 0 {
		flag.Usage()
		return fmt.Errorf("-minutes must be positive")
	}

	// Fixed clock for reproducible file names.
	clock := clockwork.NewFakeClockAt(baseDate.Add(time.Duration(*n) * time.Minute))
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	spikeAt := make(map[int]bool, *spikes)
	for range *spikes {
		spikeAt[rng.IntN(*n)] = true
	}

	stamp := clock.Now().UTC()
	spacePath := filepath.Join(*spaceDir, "dscovr_l1_harvest_"+stamp.Format("20060102_150405")+".csv")
	groundPath := filepath.Join(*groundDir, *station+"_harvest_"+stamp.Format("20060102_1504")+".csv")

	if err := writeCSV(spacePath, spaceRows(rng, *n, spikeAt)); err != nil {
		return fmt.Errorf("writing space file: %w", err)
	}
	log.Printf("wrote %s", spacePath)

	if err := writeCSV(groundPath, groundRows(rng, *n, *offset)); err != nil {
		return fmt.Errorf("writing ground file: %w", err)
	}
	log.Printf("wrote %s", groundPath)

	return printStats(spacePath, groundPath)
}

func spaceRows(rng *rand.Rand, n int, spikeAt map[int]bool) [][]string {
	rows := [][]string{{"time_tag", "bx_gsm", "by_gsm", "bz_gsm", "lon_gsm", "lat_gsm", "bt"}}
	for i := range n {
		// DSCOVR samples land a few seconds past the minute.
		at := baseDate.Add(time.Duration(i)*time.Minute + time.Duration(rng.IntN(50))*time.Second)
		bx := 3 + rng.NormFloat64()*0.4
		by := -4 + rng.NormFloat64()*0.4
		bz := -1 + rng.NormFloat64()*0.6
		if spikeAt[i] {
			bx, by = bx*2.2, by*2.2
		}
		bt := math.Sqrt(bx*bx + by*by + bz*bz)
		lon := math.Mod(math.Atan2(by, bx)*180/math.Pi+360, 360)
		lat := math.Asin(bz/bt) * 180 / math.Pi

		btCell := fmtFloat(bt)
		if rng.IntN(200) == 0 {
			btCell = "" // occasional telemetry dropout
		}
		rows = append(rows, []string{
			at.Format("2006-01-02 15:04:05.000"),
			fmtFloat(bx), fmtFloat(by), fmtFloat(bz), fmtFloat(lon), fmtFloat(lat),
			btCell,
		})
	}
	return rows
}

func groundRows(rng *rand.Rand, n int, offset time.Duration) [][]string {
	rows := [][]string{{"time_tag", "H", "D", "Z", "F"}}
	for i := range n {
		at := baseDate.Add(offset + time.Duration(i)*time.Minute)
		h := 20980 + rng.NormFloat64()*3
		d := 8.1 + rng.NormFloat64()*0.02
		z := 47212 + rng.NormFloat64()*2
		f := math.Sqrt(h*h + z*z)
		rows = append(rows, []string{
			at.Format(time.RFC3339),
			fmtFloat(h), fmtFloat(d), fmtFloat(z), fmtFloat(f),
		})
	}
	return rows
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func printStats(spacePath, groundPath string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	space, err := filestore.ReadSeries(domain.SourceSpace, spacePath, logger)
	if err != nil {
		return err
	}
	ground, err := filestore.ReadSeries(domain.SourceGround, groundPath, logger)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Expected analysis ===")
	rows, err := domain.Align(space, ground)
	if err != nil {
		fmt.Printf("Align: %v\n", err)
		return nil
	}
	fmt.Printf("Aligned rows: %d\n", len(rows))

	for _, kind := range domain.StrategyKinds() {
		cfg := domain.DefaultRunConfig()
		cfg.Strategy = kind
		engine, err := domain.NewStressEngine(cfg, logger)
		if err != nil {
			return err
		}
		ex := domain.ExtractEvents(engine.Score(rows), cfg.SnapThreshold(), cfg.TopK)
		fmt.Printf("%-34s peak=%.4f violations=%d missing=%d\n",
			engine.Strategy(), ex.Peak, len(ex.Violations), ex.MissingSamples)
	}
	return nil
}
