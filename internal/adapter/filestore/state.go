package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// StatePattern matches the state tables written by StateRecorder.
	StatePattern = "gmvs_state_*.csv"

	// Microseconds keep names unique across runs started within one second.
	stateStampLayout = "20060102_150405.000000"
)

var stateHeader = []string{domain.TimeColumn, "bt", "baseline", "stress"}

// StateRecorder writes one timestamp-named state table per run.
type StateRecorder struct {
	dir    string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewStateRecorder creates a recorder writing into dir. The clock stamps the
// file name.
func NewStateRecorder(dir string, clock clockwork.Clock, logger *slog.Logger) *StateRecorder {
	return &StateRecorder{dir: dir, clock: clock, logger: logger}
}

// Record writes points in the order given and returns the table's path.
// Missing magnitudes are written as empty cells.
func (s *StateRecorder) Record(ctx context.Context, points []domain.StatePoint) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodeState(points)
	if err != nil {
		return "", err
	}

	name := "gmvs_state_" + s.clock.Now().UTC().Format(stateStampLayout) + ".csv"
	path := filepath.Join(s.dir, name)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	s.logger.Info("state recorded", "path", path, "rows", len(points))
	return path, nil
}

func encodeState(points []domain.StatePoint) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(stateHeader); err != nil {
		return nil, fmt.Errorf("write state header: %w", err)
	}
	for _, p := range points {
		magnitude := ""
		if v, ok := p.Magnitude.Float(); ok {
			magnitude = formatFloat(v)
		}
		row := []string{
			p.Time.UTC().Format(time.RFC3339),
			magnitude,
			formatFloat(p.Baseline),
			formatFloat(p.Stress),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write state row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush state table: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// LoadState reads a state table written by StateRecorder.
func LoadState(path string) ([]domain.StatePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}
	defer f.Close()

	points, err := decodeState(f)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}
	return points, nil
}

func decodeState(r io.Reader) ([]domain.StatePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(stateHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errEmptyArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range stateHeader {
		if header[i] != want {
			return nil, fmt.Errorf("unexpected state column %q at %d, want %q", header[i], i, want)
		}
	}

	var points []domain.StatePoint
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		at, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		magnitude, _ := parseCell(record[1])
		baseline, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: baseline: %w", line, err)
		}
		stress, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: stress: %w", line, err)
		}
		points = append(points, domain.StatePoint{Time: at, Magnitude: magnitude, Baseline: baseline, Stress: stress})
	}
	return points, nil
}
