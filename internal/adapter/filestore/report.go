package filestore

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
)

// ReportWriter persists rendered reports to a fixed path.
type ReportWriter struct {
	path   string
	logger *slog.Logger
}

// NewReportWriter creates a writer for the report artifact at path.
func NewReportWriter(path string, logger *slog.Logger) *ReportWriter {
	return &ReportWriter{path: path, logger: logger}
}

// Path returns the report artifact location.
func (w *ReportWriter) Path() string {
	return w.path
}

// WriteReport renders r and replaces the report artifact in one step.
func (w *ReportWriter) WriteReport(ctx context.Context, r domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(w.path, domain.RenderReport(r), 0o644); err != nil {
		return err
	}
	w.logger.Info("report written", "path", w.path, "status", r.Status, "run_id", r.RunID)
	return nil
}
