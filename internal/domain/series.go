package domain

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Source identifies which feed a sample came from.
type Source string

const (
	SourceSpace  Source = "SPACE"
	SourceGround Source = "GROUND"
)

// TimeColumn is the timestamp header required in every input artifact.
const TimeColumn = "time_tag"

// Canonical field names resolved at load time.
const (
	FieldMagnitude   = "bt"
	FieldBx          = "bx"
	FieldBy          = "by"
	FieldTotalField  = "total_field"
	FieldHorizontal  = "horizontal"
	FieldDeclination = "declination"
)

// fieldCandidate lists the headers accepted for one canonical field, in priority order.
type fieldCandidate struct {
	field   string
	headers []string
}

var canonicalHeaders = map[Source][]fieldCandidate{
	SourceSpace: {
		{field: FieldMagnitude, headers: []string{"bt", "bt_space"}},
		{field: FieldBx, headers: []string{"bx", "bx_gsm", "bx_gse", "bx_space"}},
		{field: FieldBy, headers: []string{"by", "by_gsm", "by_gse", "by_space"}},
	},
	SourceGround: {
		{field: FieldTotalField, headers: []string{"F", "F_ground"}},
		{field: FieldHorizontal, headers: []string{"H", "H_ground", "X", "X_ground"}},
		{field: FieldDeclination, headers: []string{"D", "D_ground"}},
	},
}

// groundResponsePriority is the order in which ground fields are shown next to an event.
var groundResponsePriority = []string{FieldTotalField, FieldHorizontal, FieldDeclination}

// Canonicalize maps each canonical field of the given feed to the header that
// supplies it. Fields with no matching header are returned in missing.
func Canonicalize(source Source, headers []string) (resolved map[string]string, missing []string) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	resolved = make(map[string]string)
	for _, c := range canonicalHeaders[source] {
		found := false
		for _, h := range c.headers {
			if present[h] {
				resolved[c.field] = h
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, c.field)
		}
	}
	return resolved, missing
}

// Value is a numeric cell that may be missing. The zero Value is missing,
// which keeps a bad cell distinguishable from a genuine 0 reading.
type Value struct {
	v     float64
	valid bool
}

// Missing is the tombstone for an absent or unparseable cell.
var Missing = Value{}

// Known wraps a reading. Non-finite readings are stored as Missing.
func Known(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Value{v: v, valid: true}
}

// Float returns the reading and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.v, v.valid
}

// IsMissing reports whether the cell carries no reading.
func (v Value) IsMissing() bool {
	return !v.valid
}

// OrZero returns the reading, or 0 when it is missing.
func (v Value) OrZero() float64 {
	if !v.valid {
		return 0
	}
	return v.v
}

func (v Value) String() string {
	if !v.valid {
		return "missing"
	}
	return strconv.FormatFloat(v.v, 'f', 2, 64)
}

// TimePoint is one timestamped row of a feed.
type TimePoint struct {
	Time   time.Time
	Source Source
	// Values holds every numeric column keyed by its original header.
	Values map[string]Value
	// Fields holds the canonical fields resolved at load time. A field whose
	// column does not exist in the artifact has no key.
	Fields map[string]Value
}

// Field returns a canonical field and whether its column exists.
func (p TimePoint) Field(name string) (Value, bool) {
	v, ok := p.Fields[name]
	return v, ok
}

// Series is one loaded artifact: points ordered by time with unique timestamps.
type Series struct {
	Source   Source
	Artifact string
	// Columns lists the numeric headers in file order, time_tag excluded.
	Columns        []string
	Canonical      map[string]string
	MissingColumns []string
	// CoercedCells counts non-empty cells that failed numeric parsing.
	CoercedCells int
	Points       []TimePoint
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Points)
}

// NewSeries orders points chronologically and collapses duplicate timestamps,
// keeping the row that appeared last in the artifact. Canonical fields are
// filled from the resolved header map.
func NewSeries(source Source, artifact string, columns []string, points []TimePoint) Series {
	canonical, missing := Canonicalize(source, columns)

	sorted := make([]TimePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	deduped := make([]TimePoint, 0, len(sorted))
	for _, p := range sorted {
		p.Source = source
		p.Fields = make(map[string]Value, len(canonical))
		for field, header := range canonical {
			p.Fields[field] = p.Values[header]
		}
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(p.Time) {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	return Series{
		Source:         source,
		Artifact:       artifact,
		Columns:        columns,
		Canonical:      canonical,
		MissingColumns: missing,
		Points:         deduped,
	}
}
