package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Status is the verdict of one run.
type Status string

const (
	StatusStable    Status = "STABLE"
	StatusFracture  Status = "FRACTURE"
	StatusBuffering Status = "SYNCHRONIZING"
)

// Report is the aggregate rendered into the verdict document.
type Report struct {
	RunID          string
	GeneratedAt    time.Time
	SpaceArtifact  string
	GroundArtifact string
	Status         Status
	Strategy       string
	Bounded        bool
	Threshold      float64
	Peak           float64
	Violations     int
	Rows           int
	MissingSamples int
	Events         []Event
}

// NewReport builds a verdict from an extraction. Status is FRACTURE when at
// least one row crossed the threshold.
func NewReport(runID string, space, ground Series, strategy Strategy, ex Extraction) Report {
	status := StatusStable
	if len(ex.Violations) > 0 {
		status = StatusFracture
	}
	return Report{
		RunID:          runID,
		GeneratedAt:    clock.Now().UTC(),
		SpaceArtifact:  space.Artifact,
		GroundArtifact: ground.Artifact,
		Status:         status,
		Strategy:       strategy.String(),
		Bounded:        strategy.Bounded(),
		Threshold:      ex.Threshold,
		Peak:           ex.Peak,
		Violations:     len(ex.Violations),
		Rows:           ex.Rows,
		MissingSamples: ex.MissingSamples,
		Events:         ex.Top,
	}
}

// NewBufferingReport builds the placeholder emitted while the feeds have no
// overlapping minute.
func NewBufferingReport(runID string, space, ground Series) Report {
	return Report{
		RunID:          runID,
		GeneratedAt:    clock.Now().UTC(),
		SpaceArtifact:  space.Artifact,
		GroundArtifact: ground.Artifact,
		Status:         StatusBuffering,
	}
}

// RenderReport renders the markdown verdict. The output depends only on r, so
// two renders of the same report differ at most in the Generated line.
func RenderReport(r Report) []byte {
	var b bytes.Buffer

	if r.Status == StatusBuffering {
		b.WriteString("# GEOMAGNETIC VACUUM SHEET (GMVS) STATUS\n")
		writeMetadata(&b, r)
		b.WriteString("\n## GMVS STATUS: SYNCHRONIZING BUFFERS\n")
		b.WriteString("No overlapping minute between the space and ground feeds yet.\n")
		return b.Bytes()
	}

	b.WriteString("# GEOMAGNETIC VACUUM SHEET (GMVS) VERDICT\n")
	writeMetadata(&b, r)
	fmt.Fprintf(&b, "**Baseline:** %s\n", r.Strategy)

	fmt.Fprintf(&b, "\n## GMVS STATUS: %s\n", r.Status)
	fmt.Fprintf(&b, "* **Peak Stress Ratio:** %.4f\n", r.Peak)
	fmt.Fprintf(&b, "* **Fracture Events (>%s):** %d\n", formatThreshold(r.Threshold), r.Violations)
	fmt.Fprintf(&b, "* **Aligned Samples:** %d\n", r.Rows)
	if r.MissingSamples > 0 {
		fmt.Fprintf(&b, "* **Missing Space Samples:** %d (scored as 0)\n", r.MissingSamples)
	}

	b.WriteString("\n## TOP GMVS LOAD EVENTS\n")
	b.WriteString("| Time (UTC) | Space Load (nT) | GMVS Stress | Ground Response |\n")
	b.WriteString("| :--- | :--- | :--- | :--- |\n")
	for _, e := range r.Events {
		fmt.Fprintf(&b, "| %s | %s | **%.4f** | %s |\n",
			e.Time.UTC().Format("2006-01-02 15:04"),
			e.Magnitude,
			e.Stress,
			formatGroundResponse(e),
		)
	}
	return b.Bytes()
}

func writeMetadata(b *bytes.Buffer, r Report) {
	fmt.Fprintf(b, "**Generated:** %s\n", r.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "**Run:** %s\n", r.RunID)
	fmt.Fprintf(b, "**Space Node:** %s\n", r.SpaceArtifact)
	fmt.Fprintf(b, "**Ground Node:** %s\n", r.GroundArtifact)
}

func formatGroundResponse(e Event) string {
	if e.GroundField == "" {
		return "N/A"
	}
	return fmt.Sprintf("%s (%s)", e.GroundResponse, e.GroundField)
}

func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// Verdict is the machine-readable summary of a report, published to Kafka and
// served over HTTP.
type Verdict struct {
	RunID          string         `json:"run_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	SpaceArtifact  string         `json:"space_artifact"`
	GroundArtifact string         `json:"ground_artifact"`
	Status         Status         `json:"status"`
	Strategy       string         `json:"strategy,omitempty"`
	Bounded        bool           `json:"bounded"`
	Threshold      float64        `json:"threshold"`
	Peak           float64        `json:"peak_stress"`
	Violations     int            `json:"violations"`
	Rows           int            `json:"aligned_rows"`
	MissingSamples int            `json:"missing_samples"`
	Events         []VerdictEvent `json:"events"`
}

// VerdictEvent is one ranked event in a Verdict. Nil pointers mark missing readings.
type VerdictEvent struct {
	Time           time.Time `json:"time"`
	SpaceMagnitude *float64  `json:"space_magnitude"`
	Baseline       float64   `json:"baseline"`
	Stress         float64   `json:"stress"`
	GroundField    string    `json:"ground_field,omitempty"`
	GroundResponse *float64  `json:"ground_response"`
}

// Verdict converts the report into its serializable summary.
func (r Report) Verdict() Verdict {
	v := Verdict{
		RunID:          r.RunID,
		GeneratedAt:    r.GeneratedAt,
		SpaceArtifact:  r.SpaceArtifact,
		GroundArtifact: r.GroundArtifact,
		Status:         r.Status,
		Strategy:       r.Strategy,
		Bounded:        r.Bounded,
		Threshold:      r.Threshold,
		Peak:           r.Peak,
		Violations:     r.Violations,
		Rows:           r.Rows,
		MissingSamples: r.MissingSamples,
		Events:         make([]VerdictEvent, 0, len(r.Events)),
	}
	for _, e := range r.Events {
		v.Events = append(v.Events, VerdictEvent{
			Time:           e.Time,
			SpaceMagnitude: floatPtr(e.Magnitude),
			Baseline:       e.Baseline,
			Stress:         e.Stress,
			GroundField:    e.GroundField,
			GroundResponse: floatPtr(e.GroundResponse),
		})
	}
	return v
}

func floatPtr(v Value) *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}
