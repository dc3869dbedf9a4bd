package filestore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
)

var errEmptyArtifact = errors.New("artifact is empty")

// Timestamp layouts accepted for time_tag. Values without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ReadSeries parses one CSV artifact. The header must carry a time_tag column;
// every other column is read as numeric, with empty, null, NaN or unparseable
// cells becoming missing values.
func ReadSeries(source domain.Source, path string, logger *slog.Logger) (domain.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Series{}, &domain.LoadError{Path: path, Err: err}
	}
	defer f.Close()

	series, err := parseSeries(source, filepath.Base(path), f)
	if err != nil {
		return domain.Series{}, &domain.LoadError{Path: path, Err: err}
	}

	attrs := []any{
		"source", source,
		"artifact", series.Artifact,
		"rows", series.Len(),
		"coerced_cells", series.CoercedCells,
	}
	if len(series.MissingColumns) > 0 {
		logger.Warn("artifact missing canonical columns", append(attrs, "missing", series.MissingColumns)...)
	} else {
		logger.Info("artifact loaded", attrs...)
	}
	return series, nil
}

func parseSeries(source domain.Source, artifact string, r io.Reader) (domain.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Series{}, errEmptyArtifact
	}
	if err != nil {
		return domain.Series{}, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	timeIdx := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[i] = h
		if h == domain.TimeColumn {
			timeIdx = i
		}
	}
	if timeIdx < 0 {
		return domain.Series{}, fmt.Errorf("header has no %s column", domain.TimeColumn)
	}

	valueColumns := make([]string, 0, len(columns)-1)
	for i, c := range columns {
		if i != timeIdx {
			valueColumns = append(valueColumns, c)
		}
	}

	var (
		points  []domain.TimePoint
		coerced int
	)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Series{}, err
		}

		at, err := parseTime(record[timeIdx])
		if err != nil {
			return domain.Series{}, fmt.Errorf("line %d: %w", line, err)
		}

		values := make(map[string]domain.Value, len(valueColumns))
		for i, cell := range record {
			if i == timeIdx {
				continue
			}
			v, ok := parseCell(cell)
			if !ok {
				coerced++
			}
			values[columns[i]] = v
		}
		points = append(points, domain.TimePoint{Time: at, Values: values})
	}

	series := domain.NewSeries(source, artifact, valueColumns, points)
	series.CoercedCells = coerced
	return series, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", domain.TimeColumn, s)
}

// parseCell returns the cell value and false when a non-blank cell was
// coerced to missing.
func parseCell(cell string) (domain.Value, bool) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "null", "nan", "na", "n/a":
		return domain.Missing, true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return domain.Missing, false
	}
	return domain.Known(f), true
}
