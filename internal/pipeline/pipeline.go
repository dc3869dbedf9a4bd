package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
	"github.com/couchcryptid/geomag-stress-service/internal/observability"
	"github.com/google/uuid"
)

// SeriesLoader returns the newest series for a source.
type SeriesLoader interface {
	Load(ctx context.Context, source domain.Source) (domain.Series, error)
}

// ReportWriter persists the rendered report, all or nothing.
type ReportWriter interface {
	WriteReport(ctx context.Context, r domain.Report) error
}

// StateRecorder persists the per-sample state table and returns its location.
type StateRecorder interface {
	Record(ctx context.Context, points []domain.StatePoint) (string, error)
}

// Publisher forwards a finished report downstream.
type Publisher interface {
	Publish(ctx context.Context, r domain.Report) error
}

// Outcome labels how a run ended.
type Outcome string

const (
	OutcomeNoData    Outcome = "no_data"
	OutcomeBuffering Outcome = "buffering"
	OutcomeStable    Outcome = "stable"
	OutcomeFracture  Outcome = "fracture"

	outcomeError = "error"
)

// Result describes one completed run.
type Result struct {
	RunID   string
	Outcome Outcome
	// Report is nil for OutcomeNoData.
	Report *domain.Report
	// StatePath is set when a state table was written.
	StatePath string
}

// Pipeline runs the load, align, score, extract, report and record sequence.
// Runs are serialized.
type Pipeline struct {
	cfg       domain.RunConfig
	engine    *domain.StressEngine
	loader    SeriesLoader
	reports   ReportWriter
	state     StateRecorder
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu     sync.Mutex
	ready  atomic.Bool
	latest atomic.Pointer[domain.Verdict]
	newID  func() string
}

// New creates a Pipeline. publisher may be nil.
func New(cfg domain.RunConfig, loader SeriesLoader, reports ReportWriter, state StateRecorder, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	engine, err := domain.NewStressEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		engine:    engine,
		loader:    loader,
		reports:   reports,
		state:     state,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}, nil
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis run has completed yet")
	}
	return nil
}

// LatestVerdict returns the verdict of the most recent run that produced a report.
func (p *Pipeline) LatestVerdict() (domain.Verdict, bool) {
	v := p.latest.Load()
	if v == nil {
		return domain.Verdict{}, false
	}
	return *v, true
}

// RunOnce executes a single analysis pass. Missing inputs and non-overlapping
// feeds are outcomes, not errors; load failures and write failures are
// returned.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res := Result{RunID: p.newID()}
	logger := p.logger.With("run_id", res.RunID)

	err := p.run(ctx, logger, &res)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(outcomeError).Inc()
		return res, err
	}

	p.metrics.RunsTotal.WithLabelValues(string(res.Outcome)).Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, res *Result) error {
	space, err := p.load(ctx, logger, domain.SourceSpace)
	if errors.Is(err, domain.ErrNoDataAvailable) {
		res.Outcome = OutcomeNoData
		logger.Info("run skipped", "outcome", res.Outcome, "reason", err)
		return nil
	}
	if err != nil {
		return err
	}

	ground, err := p.load(ctx, logger, domain.SourceGround)
	if errors.Is(err, domain.ErrNoDataAvailable) {
		res.Outcome = OutcomeNoData
		logger.Info("run skipped", "outcome", res.Outcome, "reason", err, "space_artifact", space.Artifact)
		return nil
	}
	if err != nil {
		return err
	}

	logger = logger.With("space_artifact", space.Artifact, "ground_artifact", ground.Artifact)

	rows, err := domain.Align(space, ground)
	if errors.Is(err, domain.ErrNoTimeOverlap) {
		report := domain.NewBufferingReport(res.RunID, space, ground)
		if err := p.reports.WriteReport(ctx, report); err != nil {
			logger.Error("write report failed", "error", err)
			return fmt.Errorf("write report: %w", err)
		}
		res.Outcome = OutcomeBuffering
		res.Report = &report
		p.finish(ctx, logger, report)
		logger.Info("run completed", "outcome", res.Outcome)
		return nil
	}
	if err != nil {
		logger.Error("align failed", "error", err)
		return fmt.Errorf("align: %w", err)
	}

	scored := p.engine.Score(rows)
	ex := domain.ExtractEvents(scored, p.cfg.SnapThreshold(), p.cfg.TopK)
	report := domain.NewReport(res.RunID, space, ground, p.engine.Strategy(), ex)

	if err := p.reports.WriteReport(ctx, report); err != nil {
		logger.Error("write report failed", "error", err)
		return fmt.Errorf("write report: %w", err)
	}
	statePath, err := p.state.Record(ctx, domain.StateTable(scored))
	if err != nil {
		logger.Error("record state failed", "error", err)
		return fmt.Errorf("record state: %w", err)
	}

	res.Outcome = OutcomeStable
	if report.Status == domain.StatusFracture {
		res.Outcome = OutcomeFracture
	}
	res.Report = &report
	res.StatePath = statePath

	p.metrics.AlignedRows.Set(float64(ex.Rows))
	p.metrics.PeakStress.Set(ex.Peak)
	p.metrics.Violations.Set(float64(len(ex.Violations)))
	p.metrics.MissingSamples.Set(float64(ex.MissingSamples))
	p.finish(ctx, logger, report)

	logger.Info("run completed",
		"outcome", res.Outcome,
		"baseline", p.engine.Strategy(),
		"threshold", ex.Threshold,
		"rows", ex.Rows,
		"peak_stress", ex.Peak,
		"violations", len(ex.Violations),
		"state_path", statePath,
	)
	return nil
}

func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, source domain.Source) (domain.Series, error) {
	series, err := p.loader.Load(ctx, source)
	if err != nil {
		if !errors.Is(err, domain.ErrNoDataAvailable) {
			logger.Error("load failed", "source", source, "error", err)
		}
		return domain.Series{}, err
	}
	for _, column := range series.MissingColumns {
		p.metrics.MissingColumns.WithLabelValues(string(source), column).Inc()
	}
	if series.CoercedCells > 0 {
		p.metrics.CoercedCells.WithLabelValues(string(source)).Add(float64(series.CoercedCells))
	}
	return series, nil
}

// finish publishes the verdict and records it as the latest. Publishing is
// best effort: the report on disk is the primary artifact.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, report domain.Report) {
	v := report.Verdict()
	p.latest.Store(&v)

	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, report); err != nil {
		p.metrics.PublishErrors.Inc()
		logger.Warn("publish verdict failed", "error", err)
	}
}
