package filestore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeries_Space(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dscovr.csv", dscovrCSV)

	s, err := ReadSeries(domain.SourceSpace, path, testLogger())
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, time.Date(2024, time.May, 10, 17, 0, 0, 0, time.UTC), s.Points[0].Time)
	assert.Equal(t, map[string]string{"bt": "bt", "bx": "bx_gsm", "by": "by_gsm"}, s.Canonical)
	assert.Zero(t, s.CoercedCells)

	bt, ok := s.Points[0].Field(domain.FieldMagnitude)
	require.True(t, ok)
	assert.Equal(t, domain.Known(5.3), bt)

	bx, ok := s.Points[1].Field(domain.FieldBx)
	require.True(t, ok)
	assert.True(t, bx.IsMissing())

	bt, _ = s.Points[2].Field(domain.FieldMagnitude)
	assert.True(t, bt.IsMissing())
}

func TestReadSeries_CoercesGarbageCells(t *testing.T) {
	content := "time_tag,bt\n" +
		"2024-05-10T17:00:00Z,abc\n" +
		"2024-05-10T17:01:00Z,NaN\n" +
		"2024-05-10T17:02:00Z,4.5\n" +
		"2024-05-10T17:03:00Z,+Inf\n"
	path := writeFile(t, t.TempDir(), "space.csv", content)

	s, err := ReadSeries(domain.SourceSpace, path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, s.CoercedCells)
	v3, _ := s.Points[3].Field(domain.FieldMagnitude)
	assert.True(t, v3.IsMissing(), "infinite readings are not scored")
	v0, _ := s.Points[0].Field(domain.FieldMagnitude)
	v1, _ := s.Points[1].Field(domain.FieldMagnitude)
	assert.True(t, v0.IsMissing())
	assert.True(t, v1.IsMissing())
}

func TestReadSeries_TimestampsAreUTC(t *testing.T) {
	content := "\ufefftime_tag,F\n" +
		"2024-05-10T12:00:30-05:00,1\n" +
		"2024-05-10 17:02,2\n"
	path := writeFile(t, t.TempDir(), "ground.csv", content)

	s, err := ReadSeries(domain.SourceGround, path, testLogger())
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2024, time.May, 10, 17, 0, 30, 0, time.UTC), s.Points[0].Time)
	assert.Equal(t, time.UTC, s.Points[0].Time.Location())
	assert.Equal(t, time.Date(2024, time.May, 10, 17, 2, 0, 0, time.UTC), s.Points[1].Time)
}

func TestReadSeries_MissingColumnsDegrade(t *testing.T) {
	content := "time_tag,density,speed\n2024-05-10T17:00:00Z,4.1,410\n"
	path := writeFile(t, t.TempDir(), "plasma.csv", content)

	s, err := ReadSeries(domain.SourceSpace, path, testLogger())
	require.NoError(t, err)
	assert.Contains(t, s.MissingColumns, domain.FieldMagnitude)

	_, ok := s.Points[0].Field(domain.FieldMagnitude)
	assert.False(t, ok)
}

func TestReadSeries_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "no time_tag header", content: "timestamp,bt\n2024-05-10T17:00:00Z,1\n"},
		{name: "bad timestamp", content: "time_tag,bt\nyesterday,1\n"},
		{name: "ragged row", content: "time_tag,bt\n2024-05-10T17:00:00Z,1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.csv", tt.content)

			_, err := ReadSeries(domain.SourceSpace, path, testLogger())
			require.Error(t, err)

			var loadErr *domain.LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, path, loadErr.Path)
			assert.NotErrorIs(t, err, domain.ErrNoDataAvailable)
		})
	}
}

func TestReadSeries_Unreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.csv")

	_, err := ReadSeries(domain.SourceGround, path, testLogger())

	var loadErr *domain.LoadError
	assert.True(t, errors.As(err, &loadErr))
}
